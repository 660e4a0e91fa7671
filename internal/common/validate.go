package common

import (
	"net/http"

	validator "github.com/go-playground/validator/v10"
)

// ValidateStruct runs validator tags against the payload and converts failures
// into a BAD_REQUEST AppError with per-field details.
func ValidateStruct(v *validator.Validate, payload any) error {
	if v == nil {
		return nil
	}
	err := v.Struct(payload)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return NewAppError("BAD_REQUEST", "invalid payload", http.StatusBadRequest, err)
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = fe.Tag()
	}
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    "invalid payload",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    details,
	}
}
