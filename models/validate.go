package models

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError is one structured input problem. Validation runs
// explicitly before any transaction starts; a non-empty result means
// nothing was persisted.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateStruct evaluates the `validate` tags of an input struct and
// returns every violation. Operation-layer code calls this instead of
// relying on field-setter side effects.
func ValidateStruct(input interface{}) []ValidationError {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Field: "", Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(invalid))
	for _, fe := range invalid {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Message: "failed on '" + fe.Tag() + "'",
		})
	}
	return out
}
