// Package token generates confirmation tokens for pending subscriptions.
package token

import (
	"crypto/rand"
	"fmt"
)

// Length is the number of characters in a confirmation token.
const Length = 25

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Rejection-sampling bound: the largest multiple of len(alphabet) below 256,
// so every accepted byte maps uniformly onto the alphabet.
const maxAcceptable = byte(256 - 256%len(alphabet))

// Generator produces URL-safe alphanumeric tokens from a cryptographically
// secure random source.
type Generator struct{}

// NewGenerator creates a new token generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a new random token. Tokens are 25 characters drawn
// uniformly from [A-Za-z0-9], which is enough entropy (~149 bits) to make
// guessing or collisions implausible.
func (*Generator) Generate() (string, error) {
	out := make([]byte, 0, Length)
	buf := make([]byte, Length)

	for len(out) < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxAcceptable {
				continue
			}

			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == Length {
				break
			}
		}
	}

	return string(out), nil
}
