// Package pickup generates pickup codes and parses what the counter scanner sends.
package pickup

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"ecoplate-api/internal/model"
)

// Alphabet leaves out 0, O, 1 and I so codes can be read aloud and typed.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in a pickup code.
const CodeLength = 6

// PayloadPrefix starts every QR payload: ECOPLATE:<code>:<location>.
const PayloadPrefix = "ECOPLATE"

var ErrMalformed = errors.New("malformed pickup code")

// NewCode returns a random code drawn uniformly from Alphabet.
func NewCode() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate pickup code: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Payload renders the QR payload for a code.
func Payload(code string, loc model.Location) string {
	return PayloadPrefix + ":" + code + ":" + string(loc)
}

// Scan is a parsed scanner input.
type Scan struct {
	Code     string
	Location model.Location // empty for bare codes
}

// Parse accepts a QR payload or a bare 6-character code, case-insensitively.
// Bare input is checked for shape only; alphabet membership is left to the
// registry lookup so a mistyped code reads as "not found".
func Parse(raw string) (Scan, error) {
	raw = strings.TrimSpace(raw)
	parts := strings.Split(raw, ":")

	switch {
	case len(parts) == 3 && strings.EqualFold(parts[0], PayloadPrefix):
		code := strings.ToUpper(strings.TrimSpace(parts[1]))
		if !wellFormed(code) {
			return Scan{}, ErrMalformed
		}
		return Scan{Code: code, Location: model.Location(strings.TrimSpace(parts[2]))}, nil
	case len(parts) == 1:
		code := strings.ToUpper(raw)
		if !wellFormed(code) {
			return Scan{}, ErrMalformed
		}
		return Scan{Code: code}, nil
	default:
		return Scan{}, ErrMalformed
	}
}

func wellFormed(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
