package util

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/text/unicode/norm"
)

// DeriveSubkey expands master into a KeySize key bound to label, so one
// master secret can serve several purposes without key reuse.
func DeriveSubkey(master []byte, label string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(label))
	k := make([]byte, KeySize)
	if _, err := io.ReadFull(r, k); err != nil {
		return nil, fmt.Errorf("expanding subkey: %w", err)
	}
	return k, nil
}

// NormalizePassphrase maps s to NFKD so visually identical passphrases
// derive the same key regardless of how the keyboard composed them.
func NormalizePassphrase(s string) string {
	return norm.NFKD.String(s)
}
