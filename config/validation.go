package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report koanf paths (upstream.admin.url) instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks cfg and returns every problem found, each as a *ConfigError.
func Validate(cfg *Config) error {
	if cfg == nil {
		return NewMissingFieldError("config")
	}

	var errs []error
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("config validation failed: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, toConfigError(fe))
		}
	}

	if cfg.Client.Delay.Base > cfg.Client.Delay.Max {
		errs = append(errs, NewInvalidFieldError("client.delay.base",
			fmt.Sprintf("must not exceed client.delay.max (%v > %v)", cfg.Client.Delay.Base, cfg.Client.Delay.Max), nil))
	}
	if cfg.Upstream.Admin.Prefix != "" && cfg.Upstream.Admin.Prefix == cfg.Upstream.Public.Prefix {
		errs = append(errs, NewInvalidFieldError("upstream.public.prefix", "must differ from upstream.admin.prefix", nil))
	}
	if err := cfg.Observability.Validate(); err != nil {
		errs = append(errs, NewInvalidFieldError("observability", err.Error(), nil))
	}

	return errors.Join(errs...)
}

// toConfigError converts a validator field error into a ConfigError keyed by
// its koanf path.
func toConfigError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	// Drop the root struct name.
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "url":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid url %q", fmt.Sprint(fe.Value())), nil)
	case "startswith":
		return NewInvalidFieldError(field, fmt.Sprintf("must start with %q", fe.Param()), nil)
	default:
		return NewInvalidFieldError(field, fmt.Sprintf("failed %s=%s (got %v)", fe.Tag(), fe.Param(), fe.Value()), nil)
	}
}
