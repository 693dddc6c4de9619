package dto

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// Validatable is implemented by every request payload.
type Validatable interface {
	Validate() error
}

// Check runs v.Validate and reports the first failing field, in name order,
// as a validation error.
func Check(v Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		var internal validation.InternalError
		if errors.As(err, &internal) {
			return apperrors.NewInternalError(err)
		}
		return apperrors.NewValidationError("body", err.Error())
	}
	fields := make([]string, 0, len(fieldErrs))
	for field := range fieldErrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	field := fields[0]
	return apperrors.NewValidationError(field, field+": "+strings.TrimSuffix(fieldErrs[field].Error(), "."))
}
