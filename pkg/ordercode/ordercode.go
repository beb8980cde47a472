// Package ordercode generates human-referenceable order codes of the form
// YYYYMMDDHHMMSS-XXXXXXXX, where the suffix is 8 uppercase hex characters
// from a CSPRNG. The timestamp prefix keeps codes roughly sortable; the
// random suffix avoids guessable references.
package ordercode

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const timeLayout = "20060102150405"

// New returns a fresh order code for the given time.
func New(now time.Time) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating order code suffix: %w", err)
	}
	suffix := strings.ToUpper(hex.EncodeToString(buf[:]))
	return now.Format(timeLayout) + "-" + suffix, nil
}

// IsValid reports whether a string has the order code shape. Used to decide
// whether a gateway order reference is a code or a raw id.
func IsValid(code string) bool {
	if len(code) != len(timeLayout)+1+8 {
		return false
	}
	if code[len(timeLayout)] != '-' {
		return false
	}
	if _, err := time.Parse(timeLayout, code[:len(timeLayout)]); err != nil {
		return false
	}
	for _, r := range code[len(timeLayout)+1:] {
		isDigit := r >= '0' && r <= '9'
		isUpperHex := r >= 'A' && r <= 'F'
		if !isDigit && !isUpperHex {
			return false
		}
	}
	return true
}
