package auth

import (
	"errors"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidPin = errors.New("PIN must be 4 to 6 digits")

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePin accepts 4-6 ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return ErrInvalidPin
	}
	for _, r := range pin {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return ErrInvalidPin
		}
	}
	return nil
}

func HashPin(pin string) (string, error) {
	if err := ValidatePin(pin); err != nil {
		return "", err
	}
	return HashPassword(pin)
}
