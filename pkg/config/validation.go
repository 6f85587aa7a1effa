package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus the rules that
// cannot be expressed in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	keys := make(map[string]bool, len(cfg.Providers))
	ids := make(map[int]bool, len(cfg.Providers))
	for i, p := range cfg.Providers {
		if strings.Contains(p.Key, ":") {
			return fmt.Errorf("providers[%d]: key %q must not contain ':'", i, p.Key)
		}
		if keys[p.Key] {
			return fmt.Errorf("providers[%d]: duplicate provider key %q", i, p.Key)
		}
		keys[p.Key] = true
		if ids[p.ID] {
			return fmt.Errorf("providers[%d]: duplicate provider id %d", i, p.ID)
		}
		ids[p.ID] = true
	}
	return nil
}

// formatValidationError turns validator's error list into one readable
// message.
func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q validation", ve.Namespace(), ve.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
