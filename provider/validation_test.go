package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfigFields(t *testing.T) {
	fields := []ConfigField{
		{Key: "username", Required: true, Type: "string", MinLength: 3, MaxLength: 10},
		{Key: "baseURL", Required: false, Type: "url"},
		{Key: "timeout", Required: false, Type: "number"},
		{Key: "sandbox", Required: false, Type: "boolean"},
		{Key: "region", Required: false, Type: "string", Pattern: "^(se|no|fi|dk)$"},
	}

	tests := []struct {
		name      string
		config    map[string]string
		expectErr string
	}{
		{"valid minimal", map[string]string{"username": "merchant"}, ""},
		{"valid full", map[string]string{"username": "merchant", "baseURL": "https://api.example.com", "timeout": "10", "sandbox": "true", "region": "se"}, ""},
		{"missing required", map[string]string{}, "is missing"},
		{"blank required", map[string]string{"username": "  "}, "cannot be empty"},
		{"too short", map[string]string{"username": "ab"}, "at least 3"},
		{"too long", map[string]string{"username": "abcdefghijk"}, "must not exceed 10"},
		{"relative url", map[string]string{"username": "merchant", "baseURL": "/api"}, "absolute URL"},
		{"bad number", map[string]string{"username": "merchant", "timeout": "ten"}, "must be a number"},
		{"bad boolean", map[string]string{"username": "merchant", "sandbox": "yes"}, "'true' or 'false'"},
		{"pattern mismatch", map[string]string{"username": "merchant", "region": "us"}, "does not match"},
		{"optional empty skipped", map[string]string{"username": "merchant", "baseURL": ""}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfigFields("test", tt.config, fields)
			if tt.expectErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.expectErr)
				assert.Contains(t, err.Error(), "test:")
			}
		})
	}
}

func TestValidateConfigFields_ReportsEveryProblem(t *testing.T) {
	fields := []ConfigField{
		{Key: "username", Required: true, Type: "string"},
		{Key: "password", Required: true, Type: "string"},
		{Key: "timeout", Required: false, Type: "number"},
	}

	err := ValidateConfigFields("resurs", map[string]string{"timeout": "soon"}, fields)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "'username' is missing")
		assert.Contains(t, err.Error(), "'password' is missing")
		assert.Contains(t, err.Error(), "'timeout' must be a number")
	}
}

func TestValidateConfigFields_BrokenPattern(t *testing.T) {
	fields := []ConfigField{{Key: "region", Type: "string", Pattern: "("}}

	err := ValidateConfigFields("test", map[string]string{"region": "se"}, fields)
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "invalid pattern")
	}
}

func TestParseStatus(t *testing.T) {
	for _, value := range []string{"DENIED", "signing", " Frozen ", "BOOKED", "finalized"} {
		_, err := ParseStatus(value)
		assert.NoError(t, err, value)
	}

	status, _ := ParseStatus("signing")
	assert.Equal(t, StatusSigning, status)

	_, err := ParseStatus("PENDING")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCustomerTypeFor(t *testing.T) {
	assert.Equal(t, CustomerLegal, CustomerTypeFor(true))
	assert.Equal(t, CustomerNatural, CustomerTypeFor(false))
}
