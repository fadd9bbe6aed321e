// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC as the process timezone so nothing depends on host settings.
//  2. Load .env files via godotenv (the default file is optional).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
// It wraps a ConfigErrorType and an underlying error message.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// envLookup matches the signature of os.LookupEnv and allows injection for testing.
type envLookup func(key string) (string, bool)

// dotenvLoader matches the signature of godotenv.Load.
type dotenvLoader func(filenames ...string) error

// loaderDeps holds the injectable dependencies for the loader, enabling
// testing without touching the working directory.
type loaderDeps struct {
	lookupEnv  envLookup
	loadDotenv dotenvLoader
}

// defaultDeps returns the standard OS-backed dependencies.
func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv:  os.LookupEnv,
		loadDotenv: godotenv.Load,
	}
}

// LoadConfig loads and validates the configuration.
//
// With no arguments it reads an optional ".env" in the working directory.
// Explicitly named env files must exist. Values already present in the OS
// environment are never overridden by a dotenv file.
func LoadConfig(envFiles ...string) (*Config, error) {
	return loadConfigWithDeps(defaultDeps(), envFiles...)
}

func loadConfigWithDeps(deps loaderDeps, envFiles ...string) (*Config, error) {
	time.Local = time.UTC

	if len(envFiles) == 0 {
		_ = deps.loadDotenv()
	} else if err := deps.loadDotenv(envFiles...); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: fmt.Sprintf("failed to load env file %s", strings.Join(envFiles, ", ")),
			Err:     err,
		}
	}

	// envconfig reads tag names verbatim with an empty prefix.
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	return &cfg, nil
}

// RequireSecrets returns a MISSING_ENV ConfigError naming every environment
// variable whose secret is empty. Commands that cannot take a per-call
// credential override use it to fail before doing any work.
func RequireSecrets(secrets map[string]SecretString) error {
	var missing []string
	for name, value := range secrets {
		if value.IsZero() {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &ConfigError{
		Type:    ErrMissingEnv,
		Message: fmt.Sprintf("required environment variables not set: %s", strings.Join(missing, ", ")),
	}
}
