package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validationDetails flattens validator errors into one message per failed
// field, suitable for the response envelope's details list.
func validationDetails(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	details := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return details
}
