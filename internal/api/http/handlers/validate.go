package handlers

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

var validate = validator.New()

// checkPayload runs struct validation and converts failures to the
// VALIDATION_FAILED taxonomy entry with per-field details.
func checkPayload(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	details := map[string]any{}
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			details[fe.Field()] = fe.Tag()
		}
	}
	return apperrors.NewValidationError("invalid payload", details)
}
