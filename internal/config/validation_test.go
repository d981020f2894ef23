package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StockdeskConfig)
		fields []string
	}{
		{name: "defaults are valid", mutate: func(*StockdeskConfig) {}},
		{
			name:   "relative endpoint",
			mutate: func(c *StockdeskConfig) { c.API.Endpoint = "stock.example.com" },
			fields: []string{"api.endpoint"},
		},
		{
			name:   "path without slash",
			mutate: func(c *StockdeskConfig) { c.API.RefreshPath = "api/auth/refresh/" },
			fields: []string{"api.refreshPath"},
		},
		{
			name: "non-positive timeouts",
			mutate: func(c *StockdeskConfig) {
				c.API.RequestTimeout = 0
				c.API.RefreshTimeout = -1
			},
			fields: []string{"api.requestTimeout", "api.refreshTimeout"},
		},
		{
			name:   "unknown log format",
			mutate: func(c *StockdeskConfig) { c.Logging.Format = "xml" },
			fields: []string{"logging.format"},
		},
		{
			name:   "go template output",
			mutate: func(c *StockdeskConfig) { c.Output.Format = "go-template={{.name}}" },
		},
		{
			name:   "unknown output",
			mutate: func(c *StockdeskConfig) { c.Output.Format = "csv" },
			fields: []string{"output.format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			errs := Validate(cfg)
			var got []string
			for _, e := range errs {
				got = append(got, e.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.False(t, errs.HasErrors())
	assert.Equal(t, "no validation errors", errs.Error())

	errs.Add("api.endpoint", "must be set")
	assert.Equal(t, "field 'api.endpoint': must be set", errs.Error())

	errs.Add("", "something else")
	assert.Equal(t, "validation failed: field 'api.endpoint': must be set; something else", errs.Error())
}
