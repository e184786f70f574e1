package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against the `validate` struct tags declared on
// Config and its nested sections, returning a descriptive error listing
// every violated constraint.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msg := "invalid configuration:"
		for _, fe := range verrs {
			msg += fmt.Sprintf("\n  %s: failed %q constraint", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}
