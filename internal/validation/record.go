package validation

import (
	"fmt"
	"strings"

	"github.com/iudanet/daybook/internal/models"
)

// MaxRecordIDLen ограничивает длину id записи
const MaxRecordIDLen = 64

// ValidateRecord проверяет служебные поля записи перед записью в журнал
func ValidateRecord(r models.Record) error {
	raw, ok := r[models.FieldID]
	if !ok {
		return models.ErrRecordWithoutID
	}
	id, ok := raw.(string)
	if !ok {
		return fmt.Errorf("record id must be a string, got %T", raw)
	}
	if err := validate.Var(id, fmt.Sprintf("required,max=%d,printascii", MaxRecordIDLen)); err != nil || strings.Contains(id, " ") {
		return fmt.Errorf("invalid record id %q", id)
	}

	if v, ok := r[models.FieldOriginDevice]; ok {
		if _, isStr := v.(string); !isStr {
			return fmt.Errorf("record %s: originDevice must be a string", id)
		}
	}
	return nil
}
