package services

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"localevents/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateInput(op string, v any) error {
	if err := validate.Struct(v); err != nil {
		return fail(ErrValidation, op, err)
	}
	return nil
}

// storeErr classifies a repository error. ErrNotFound keeps its meaning,
// everything else is a storage failure.
func storeErr(op string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fail(ErrNotFound, op, err)
	}
	return fail(ErrStorage, op, err)
}
