package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can pick a remedy without reading message text.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindPayloadTooLarge Kind = "payload_too_large"
	KindTimeout         Kind = "timeout"
	KindUpstream        Kind = "upstream"
	KindInvalidResponse Kind = "invalid_response"
	KindTransport       Kind = "transport"
	KindInternal        Kind = "internal"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Wrap attaches a kind to err. An err that already carries a kind keeps it.
func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// KindOf returns the kind carried by err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

// MessageOf returns the human readable part of err, without the kind/op prefix.
func MessageOf(err error) string {
	var typed *Error
	if errors.As(err, &typed) {
		switch typed.Kind {
		case KindUpstream, KindTransport, KindInternal:
		default:
			return typed.Message
		}
		if typed.Cause != nil {
			return fmt.Sprintf("%s: %v", typed.Message, typed.Cause)
		}
		return typed.Message
	}
	return err.Error()
}

// IsValidation reports whether err was raised before any network call.
func IsValidation(err error) bool {
	kind := KindOf(err)
	return kind == KindValidation || kind == KindPayloadTooLarge
}

// HTTPStatus maps a kind onto the status the relay answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindTimeout:
		return http.StatusRequestTimeout
	case KindUpstream, KindTransport:
		return http.StatusBadGateway
	case KindInvalidResponse:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
