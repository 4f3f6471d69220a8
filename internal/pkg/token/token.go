package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// otpSpace is the number of distinct 6-digit codes.
var otpSpace = big.NewInt(1000000)

// NewOTP returns a uniformly random 6-digit numeric code, zero-padded.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
