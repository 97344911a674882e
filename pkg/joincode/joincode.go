// Package joincode generates classroom join codes.
package joincode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Alphabet omits characters that are easily confused when read aloud or typed (0/O, 1/I).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the size of a classroom code.
const Length = 6

// Generate returns a random code of n characters drawn from Alphabet.
func Generate(n int) (string, error) {
	if n <= 0 {
		n = Length
	}
	max := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = Alphabet[idx.Int64()]
	}
	return string(b), nil
}

// Normalize upper-cases and trims user input so codes compare exactly.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the expected length and alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(Alphabet, r) {
			return false
		}
	}
	return true
}

// Link returns the relative join path for a code.
func Link(code string) string {
	return "/join/" + code
}
