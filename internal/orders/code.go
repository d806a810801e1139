package orders

import (
	"crypto/rand"
	"fmt"
)

const (
	codeLength   = 10
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateCode returns a random order code: 10 uppercase alphanumerics.
// Uniqueness is enforced by the orders table, not here; creation retries on
// a code collision.
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating order code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
