package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kratos-console/gateway/observability"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadFromBytes(nil)
	require.NoError(t, err)
	return cfg
}

func configErrors(err error) []*ConfigError {
	var out []*ConfigError
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			out = append(out, configErrors(e)...)
		}
		return out
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		out = append(out, cfgErr)
	}
	return out
}

func fields(errs []*ConfigError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateDefaults(t *testing.T) {
	assert.NoError(t, Validate(validConfig(t)))
}

func TestValidateNil(t *testing.T) {
	var cfgErr *ConfigError
	require.ErrorAs(t, Validate(nil), &cfgErr)
	assert.Equal(t, "missing", cfgErr.Category)
}

func TestValidateFieldErrors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		field    string
		category string
	}{
		{name: "missing app name", mutate: func(c *Config) { c.App.Name = "" }, field: "app.name", category: "missing"},
		{name: "unknown env", mutate: func(c *Config) { c.App.Env = "qa" }, field: "app.env", category: "invalid"},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, field: "server.port", category: "invalid"},
		{name: "relative health path", mutate: func(c *Config) { c.Server.Path.Health = "health" }, field: "server.path.health", category: "invalid"},
		{name: "admin url missing", mutate: func(c *Config) { c.Upstream.Admin.URL = "" }, field: "upstream.admin.url", category: "missing"},
		{name: "public url malformed", mutate: func(c *Config) { c.Upstream.Public.URL = "not a url" }, field: "upstream.public.url", category: "invalid"},
		{name: "negative retries", mutate: func(c *Config) { c.Client.MaxRetries = -1 }, field: "client.maxretries", category: "invalid"},
		{name: "zero timeout", mutate: func(c *Config) { c.Client.Timeout = 0 }, field: "client.timeout", category: "invalid"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, field: "log.level", category: "invalid"},
		{
			name:     "base delay above max",
			mutate:   func(c *Config) { c.Client.Delay.Base, c.Client.Delay.Max = 2*time.Second, time.Second },
			field:    "client.delay.base",
			category: "invalid",
		},
		{
			name:     "shared prefix",
			mutate:   func(c *Config) { c.Upstream.Public.Prefix = c.Upstream.Admin.Prefix },
			field:    "upstream.public.prefix",
			category: "invalid",
		},
		{
			name: "observability without service name",
			mutate: func(c *Config) {
				c.Observability = observability.Config{Enabled: true}
			},
			field:    "observability",
			category: "invalid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			errs := configErrors(Validate(cfg))
			require.Len(t, errs, 1, "got %v", fields(errs))
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, tt.category, errs[0].Category)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig(t)
	cfg.App.Name = ""
	cfg.Client.Profile = "aggressive"

	errs := configErrors(Validate(cfg))
	assert.ElementsMatch(t, []string{"app.name", "client.profile"}, fields(errs))
}

func TestConfigErrorFormatting(t *testing.T) {
	missing := NewMissingFieldError("upstream.admin.url")
	assert.Equal(t,
		"config_missing: upstream.admin.url required set UPSTREAM_ADMIN_URL env var or add upstream.admin.url to config.yaml",
		missing.Error())

	invalid := NewInvalidFieldError("client.profile", `invalid value "x"`, []string{ProfileDefault, ProfileIdentity})
	assert.Equal(t, `config_invalid: client.profile invalid value "x" must be one of: default, identity`, invalid.Error())
}
