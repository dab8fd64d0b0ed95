package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	// MinUsernameLen минимальная длина username
	MinUsernameLen = 3
	// MaxUsernameLen максимальная длина username
	MaxUsernameLen = 32
	// MinPasswordLen минимальная длина пароля
	MinPasswordLen = 12
)

// ValidateUsername проверяет, что username соответствует требованиям
// Формат: только латинские буквы (a-z, A-Z), цифры (0-9), нижнее подчеркивание (_)
// Длина: 3-32 символа
func ValidateUsername(username string) error {
	err := validate.Var(username, fmt.Sprintf("required,min=%d,max=%d,username", MinUsernameLen, MaxUsernameLen))
	if err == nil {
		return nil
	}

	switch failedTag(err) {
	case "required":
		return fmt.Errorf("username cannot be empty")
	case "min":
		return fmt.Errorf("username must be at least %d characters long", MinUsernameLen)
	case "max":
		return fmt.Errorf("username must not exceed %d characters", MaxUsernameLen)
	default:
		return fmt.Errorf("username can only contain letters (a-z, A-Z), numbers (0-9), and underscores (_)")
	}
}

// ValidatePassword проверяет минимальные требования к паролю
func ValidatePassword(password string) error {
	err := validate.Var(password, fmt.Sprintf("required,min=%d", MinPasswordLen))
	if err == nil {
		return nil
	}

	if failedTag(err) == "required" {
		return fmt.Errorf("password cannot be empty")
	}
	return fmt.Errorf("password must be at least %d characters long", MinPasswordLen)
}

// failedTag возвращает первый непройденный тег валидатора
func failedTag(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Tag()
	}
	return ""
}
