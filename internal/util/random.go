package util

import (
	"crypto/rand"
	"fmt"
)

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generating random bytes: %w", err)
	}
	return b, nil
}

// WipeBytes zeroes b in place. The runtime may still hold copies.
func WipeBytes(b []byte) {
	clear(b)
}
