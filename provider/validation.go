package provider

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidConfig wraps every provider configuration problem
var ErrInvalidConfig = errors.New("invalid provider configuration")

// ValidateConfigFields checks config against the provider's field definitions
// and reports every problem found, not just the first. Optional fields are
// checked only when they carry a value.
func ValidateConfigFields(providerName string, config map[string]string, fields []ConfigField) error {
	var problems []error

	for _, field := range fields {
		value, exists := config[field.Key]
		blank := strings.TrimSpace(value) == ""

		switch {
		case field.Required && !exists:
			problems = append(problems, fieldError(providerName, field, "is missing"))
			continue
		case field.Required && blank:
			problems = append(problems, fieldError(providerName, field, "cannot be empty"))
			continue
		case blank:
			continue
		}

		for _, check := range []func(ConfigField, string) string{checkType, checkPattern, checkLength} {
			if problem := check(field, value); problem != "" {
				problems = append(problems, fieldError(providerName, field, problem))
				break
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}

func fieldError(providerName string, field ConfigField, problem string) error {
	return fmt.Errorf("%s: field '%s' %s", providerName, field.Key, problem)
}

func checkType(field ConfigField, value string) string {
	switch field.Type {
	case "number":
		if _, err := strconv.Atoi(value); err != nil {
			return "must be a number"
		}
	case "url":
		if u, err := url.Parse(value); err != nil || u.Scheme == "" || u.Host == "" {
			return "must be an absolute URL"
		}
	case "boolean":
		if value != "true" && value != "false" {
			return "must be 'true' or 'false'"
		}
	}
	return ""
}

func checkPattern(field ConfigField, value string) string {
	if field.Pattern == "" {
		return ""
	}

	re, err := regexp.Compile(field.Pattern)
	if err != nil {
		return fmt.Sprintf("has an invalid pattern: %v", err)
	}
	if !re.MatchString(value) {
		return "does not match required pattern"
	}
	return ""
}

func checkLength(field ConfigField, value string) string {
	if field.MinLength > 0 && len(value) < field.MinLength {
		return fmt.Sprintf("must be at least %d characters", field.MinLength)
	}
	if field.MaxLength > 0 && len(value) > field.MaxLength {
		return fmt.Sprintf("must not exceed %d characters", field.MaxLength)
	}
	return ""
}
