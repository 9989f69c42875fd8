// Package usecase is the data access facade. Every operation validates and
// sanitizes its input before any network I/O, scopes itself to a request
// key so a repeated call cancels the previous one, retries transient
// failures, and keeps the client-side cache coherent on writes.
package usecase

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"lumi/domain"
)

// validate is the shared validator instance; struct rules live in tags on
// the input types.
var validate = validator.New(validator.WithRequiredStructEnabled())

// checkStruct runs structural validation and converts the first failure
// into a validation-kind domain error.
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return domain.Validationf("field %s fails rule %q", f.Field(), f.Tag())
	}
	return domain.Validationf("invalid input: %v", err)
}
