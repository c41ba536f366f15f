// Package query contains read operations (CQRS - Queries).
package query

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateQuery runs struct-tag validation and wraps failures as validation errors.
func validateQuery(op string, q any) error {
	err := getValidator().Struct(q)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return shared.WrapError("query", op, shared.ErrValidation, err.Error(), err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return shared.WrapError("query", op, shared.ErrValidation, strings.Join(msgs, "; "), err)
}

// lookupError keeps not-found errors recoverable and flags everything else as
// an infrastructure failure.
func lookupError(op, what string, err error) error {
	if shared.IsNotFound(err) {
		return shared.WrapError("query", op, shared.ErrNotFound, what+" not found", err)
	}
	return shared.WrapError("query", op, shared.ErrServiceUnavailable, "failed to load "+what, err)
}
