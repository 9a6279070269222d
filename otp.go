package accounts

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/goliatone/go-errors"
)

// OTPLength is the number of digits in a verification code.
const OTPLength = 6

var otpModulus = big.NewInt(1_000_000)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOTP returns a 6-digit numeric verification code as a string,
// leading zeros preserved. Codes come from crypto/rand; predictable
// codes would defeat the verification purpose.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpModulus)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate verification code")
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}

// RandomTokenString returns an opaque alphanumeric token of the given
// length, drawn from crypto/rand.
func RandomTokenString(length int) (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate token")
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
