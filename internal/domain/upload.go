package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	BinExtension        = ".bin"
	DefaultMaxPayload   = 5 * 1024 * 1024
	FileNameHeader      = "X-Filename"
	ContentTypeBinary   = "application/octet-stream"
	synthesizedFileName = "file_%d"
)

// UploadRequest is one binary file on its way to the upstream API.
type UploadRequest struct {
	Payload      []byte
	FileName     string
	DeclaredSize int64
	ReceivedAt   time.Time
}

// Validate checks the payload is within maxBytes and present. A declared size
// over the ceiling is refused even when the payload was never read. A maxBytes
// of zero or less disables the ceiling.
func (u UploadRequest) Validate(maxBytes int64) error {
	size := u.DeclaredSize
	if int64(len(u.Payload)) > size {
		size = int64(len(u.Payload))
	}
	if maxBytes > 0 && size > maxBytes {
		return PayloadTooLarge(size, maxBytes)
	}
	if size <= 0 || len(u.Payload) == 0 {
		return New(KindValidation, "validate_upload", "Empty file or invalid data format")
	}
	return nil
}

// PayloadTooLarge builds the size-class validation error.
func PayloadTooLarge(size, maxBytes int64) *Error {
	return New(KindPayloadTooLarge, "validate_upload", fmt.Sprintf(
		"File too large (%s). Please use a file smaller than %s for serverless processing.",
		FormatMiB(size), FormatMiB(maxBytes)))
}

// FormatMiB renders a byte count the way users see it, e.g. 5.00MB.
func FormatMiB(n int64) string {
	return fmt.Sprintf("%.2fMB", float64(n)/(1024*1024))
}

// ResolveFileName returns name, or a timestamped placeholder when name is blank.
func ResolveFileName(name string, now time.Time) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf(synthesizedFileName, now.UnixMilli())
	}
	return name
}

// BaseName strips a trailing .bin from name.
func BaseName(name string) string {
	return strings.TrimSuffix(name, BinExtension)
}

// CSVFileName is the artifact name for an uploaded file name.
func CSVFileName(name string) string {
	return BaseName(name) + CSVExtension
}
