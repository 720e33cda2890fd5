// Package config provides configuration management for the Dutch Trader application.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("environment", validateEnvironment)
	v.RegisterValidation("loglevel", validateLogLevel)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateCrossField applies validations spanning multiple fields
func validateCrossField(cfg *Config) error {
	if cfg.Trading.MinStake >= cfg.Trading.MaxStakePerDutch {
		return fmt.Errorf("trading.min_stake (%.2f) must be below trading.max_stake_per_dutch (%.2f)",
			cfg.Trading.MinStake, cfg.Trading.MaxStakePerDutch)
	}
	if cfg.Trading.MaxStakePerDutch > cfg.Trading.MaxExposure {
		return fmt.Errorf("trading.max_stake_per_dutch (%.2f) cannot exceed trading.max_exposure (%.2f)",
			cfg.Trading.MaxStakePerDutch, cfg.Trading.MaxExposure)
	}
	if cfg.Features.LiveTradingEnabled && cfg.IsDevelopment() {
		return fmt.Errorf("live trading cannot be enabled in the development environment")
	}
	return nil
}

// formatValidationErrors renders field errors into a single readable message
func formatValidationErrors(errs validator.ValidationErrors) error {
	msg := "configuration validation failed:"
	for _, e := range errs {
		msg += fmt.Sprintf(" field %s failed on %q;", e.Namespace(), e.Tag())
	}
	return fmt.Errorf("%s", msg)
}
