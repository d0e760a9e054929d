package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ProcessValidationErrors maps each failing struct field to its failed rule.
func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		rule := ve.Tag()
		if ve.Param() != "" {
			rule += "=" + ve.Param()
		}
		errorResponse[ve.Field()] = rule
	}

	return errorResponse
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
