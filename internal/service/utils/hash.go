package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeHash returns the hex SHA-256 digest of data.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
