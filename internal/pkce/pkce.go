// Package pkce generates Proof Key for Code Exchange values (RFC 7636).
//
// A verifier is a random alphanumeric string created before the authorization redirect.
// The challenge sent with the redirect is BASE64URL(SHA256(verifier)) without padding ("S256").
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	MinVerifierLength     = 43
	MaxVerifierLength     = 128
	DefaultVerifierLength = MaxVerifierLength

	// Method is the only challenge method produced by this package.
	Method = "S256"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrInvalidLength is returned for verifier lengths outside [MinVerifierLength, MaxVerifierLength].
var ErrInvalidLength = fmt.Errorf("verifier length must be between %d and %d", MinVerifierLength, MaxVerifierLength)

// Pair holds a verifier and the challenge derived from it.
type Pair struct {
	Verifier  string
	Challenge string
}

// New generates a verifier of the given length and its challenge.
func New(length int) (Pair, error) {
	verifier, err := GenerateVerifier(length)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Verifier: verifier, Challenge: GenerateChallenge(verifier)}, nil
}

// GenerateVerifier returns length characters drawn uniformly, with replacement, from [A-Za-z0-9].
func GenerateVerifier(length int) (string, error) {
	return generateVerifier(rand.Reader, length)
}

// generateVerifier uses rejection sampling: bytes >= 248 (the largest multiple of 62 below 256) are discarded
// so every character is equally likely.
func generateVerifier(r io.Reader, length int) (string, error) {
	if length < MinVerifierLength || length > MaxVerifierLength {
		return "", fmt.Errorf("%w: got %d", ErrInvalidLength, length)
	}

	const limit = 256 - 256%len(alphabet)

	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// GenerateChallenge derives the S256 challenge for verifier. Same input, same output.
func GenerateChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
