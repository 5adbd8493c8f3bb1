package utils

import (
	"crypto/rand"
	"encoding/hex"
)

const resetTokenBytes = 32

// NewResetToken returns 32 bytes from crypto/rand, hex encoded (64 chars).
func NewResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
