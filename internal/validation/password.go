package validation

import (
	"fmt"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	// MaxPasswordBytes - предел bcrypt, более длинные пароли обрезаются алгоритмом.
	MaxPasswordBytes = 72
)

// ValidatePassword проверяет длину пароля.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("la contraseña debe tener al menos %d caracteres", MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("la contraseña no puede superar %d bytes", MaxPasswordBytes)
	}
	return nil
}
