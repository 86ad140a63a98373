// Package referral issues campaign referral codes.
package referral

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

// Codes avoid ambiguous characters (0/O, 1/I/L) so investors can read them
// off a confirmation email without mistakes.
const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const maxAttempts = 10

// ExistsFunc reports whether a code is already registered.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces collision-checked referral codes.
type Generator struct {
	length int
	exists ExistsFunc
}

// NewGenerator creates a generator with the given code length. Lengths
// below 4 are bumped to 4.
func NewGenerator(length int, exists ExistsFunc) *Generator {
	if length < 4 {
		length = 4
	}
	return &Generator{length: length, exists: exists}
}

// Generate returns a fresh code not present in the registry. It retries on
// collision a bounded number of times before giving up.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := randomCode(g.length)
		if err != nil {
			return "", err
		}

		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check referral code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free referral code after %d attempts", maxAttempts)
}

func randomCode(length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate referral code: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}
