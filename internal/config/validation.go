package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"stockdesk/pkg/logging"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateURL checks that value is an absolute http or https URL.
func ValidateURL(field, value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "must be an absolute http or https URL",
		}
	}
	return nil
}

// ValidatePath checks that value is an absolute URL path.
func ValidatePath(field, value string) error {
	if !strings.HasPrefix(value, "/") {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "must start with '/'",
		}
	}
	return nil
}

// ValidatePositiveDuration checks that value is greater than zero.
func ValidatePositiveDuration(field string, value time.Duration) error {
	if value <= 0 {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "must be greater than zero",
		}
	}
	return nil
}

// Validate checks a loaded configuration and returns every problem found.
func Validate(c StockdeskConfig) ValidationErrors {
	var errs ValidationErrors
	collect := func(err error) {
		if err == nil {
			return
		}
		if ve, ok := err.(ValidationError); ok {
			errs = append(errs, ve)
			return
		}
		errs.Add("", err.Error())
	}

	collect(ValidateURL("api.endpoint", c.API.Endpoint))
	collect(ValidatePath("api.loginPath", c.API.LoginPath))
	collect(ValidatePath("api.refreshPath", c.API.RefreshPath))
	collect(ValidatePath("api.registerPath", c.API.RegisterPath))
	collect(ValidatePath("api.mePath", c.API.MePath))
	collect(ValidatePositiveDuration("api.requestTimeout", c.API.RequestTimeout))
	collect(ValidatePositiveDuration("api.refreshTimeout", c.API.RefreshTimeout))

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs.Add("logging.level", err.Error(), c.Logging.Level)
	}
	collect(ValidateOneOf("logging.format", c.Logging.Format, []string{string(logging.FormatText), string(logging.FormatJSON)}))

	if !strings.HasPrefix(c.Output.Format, OutputFormatGoTemplate+"=") {
		collect(ValidateOneOf("output.format", c.Output.Format,
			[]string{OutputFormatTable, OutputFormatWide, OutputFormatJSON, OutputFormatYAML, OutputFormatGoTemplate + "=<template>"}))
	}

	return errs
}
