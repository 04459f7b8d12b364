// Package config loads the warehouse configuration from viper, which merges
// flags, WAREHOUSE_* environment variables and the config file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Validatable is implemented by every loadable configuration.
type Validatable interface {
	Validate() error
}

type Config struct {
	Warehouse WarehouseConfig `mapstructure:"warehouse" yaml:"warehouse"`
	Catalog   CatalogConfig   `mapstructure:"catalog" yaml:"catalog"`
	Check     CheckConfig     `mapstructure:"check" yaml:"check"`
	Results   ResultsConfig   `mapstructure:"results" yaml:"results"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
}

func (c Config) Validate() error {
	err := validateConfig(c)
	if err != nil {
		return err
	}
	return errors.Join(c.Catalog.Validate(), c.Results.Validate())
}

// Load unmarshals the viper configuration into T and validates it.
func Load[T Validatable]() (T, error) {
	var out T
	if err := viper.Unmarshal(&out); err != nil {
		return out, fmt.Errorf("unable to decode config, %w", err)
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("invalid config, %w", err)
	}
	return out, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateConfig checks the struct tags of c, reporting every failing field
// by its config key.
func validateConfig(c any) error {
	err := validate.Struct(c)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed %q", configKey(fe.Namespace()), fe.Tag())
		if fe.Param() != "" {
			msg += " (" + fe.Param() + ")"
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

// configKey turns "Config.Catalog.LookupTimeout" into "catalog.lookuptimeout".
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}
