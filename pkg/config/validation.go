package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	listenPort, err := parseListen(cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}

	if _, err := language.Parse(cfg.Sort.Locale); err != nil {
		return fmt.Errorf("sort.locale: invalid language tag %q: %w", cfg.Sort.Locale, err)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port == 0 {
			return fmt.Errorf("metrics.port: required when metrics are enabled")
		}
		if listenPort != 0 && cfg.Metrics.Port == listenPort {
			return fmt.Errorf("metrics.port: %d is already used by server.listen", cfg.Metrics.Port)
		}
	}

	if cfg.GC.Enabled && cfg.GC.Interval <= 0 {
		return fmt.Errorf("gc.interval: must be positive when gc is enabled")
	}
	if cfg.GC.BatchSize < 0 {
		return fmt.Errorf("gc.batch_size: must not be negative")
	}

	return nil
}

// parseListen checks a host:port listen address and returns the port. Port 0
// asks the OS for a free port.
func parseListen(addr string) (int, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q in %q", portStr, addr)
	}
	return port, nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
