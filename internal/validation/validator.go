package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	usernamePattern    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	documentKeyPattern = regexp.MustCompile(`^[a-z0-9_.-]{1,64}$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("dockey", func(fl validator.FieldLevel) bool {
		return documentKeyPattern.MatchString(fl.Field().String())
	})
	return v
}

// Struct проверяет структуру по тегам validate (конфигурация, запросы API).
// Ошибки полей собираются в одно сообщение вида "Field: rule".
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// ValidateDocumentKey проверяет имя удаленного документа: a-z, 0-9, _ . -, до 64 символов
func ValidateDocumentKey(key string) error {
	if err := validate.Var(key, "required,dockey"); err != nil {
		return fmt.Errorf("invalid document key %q", key)
	}
	return nil
}
