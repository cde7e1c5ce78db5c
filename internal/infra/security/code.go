package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a random code of n decimal digits, left-padded
// with zeros. Used for email verification codes.
func GenerateNumericCode(n int) (string, error) {
	if n <= 0 {
		n = 6
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", n, v), nil
}
