package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read by ReadEnv when no file is named.
const DefaultEnvFile = ".env"

// Environment variables that override the configuration file.
const (
	EnvBackend   = "LIQUID_BACKEND"
	EnvMode      = "LIQUID_MODE"
	EnvMaxSteps  = "LIQUID_MAX_STEPS"
	EnvCachePath = "LIQUID_CACHE_PATH"
	EnvVerbosity = "LIQUID_LOG_VERBOSITY"
)

var envKeys = []string{EnvBackend, EnvMode, EnvMaxSteps, EnvCachePath, EnvVerbosity}

// ReadEnv collects the LIQUID_* variables from a dotenv file and the
// process environment. Process variables win. A missing DefaultEnvFile is
// not an error; a missing named file is.
func ReadEnv(file string) (map[string]string, error) {
	vars := map[string]string{}

	name := file
	if name == "" {
		name = DefaultEnvFile
	}
	fileVars, err := godotenv.Read(name)
	switch {
	case err == nil:
		for _, k := range envKeys {
			if v, ok := fileVars[k]; ok {
				vars[k] = v
			}
		}
	case file == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read env file: %w", err)
	}

	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok {
			vars[k] = v
		}
	}
	return vars, nil
}

// ApplyEnv overrides c with the variables returned by ReadEnv and
// revalidates it.
func (c *Config) ApplyEnv(vars map[string]string) error {
	if v, ok := vars[EnvBackend]; ok {
		c.Backend = v
	}
	if v, ok := vars[EnvMode]; ok {
		c.Mode = v
	}
	if v, ok := vars[EnvCachePath]; ok {
		c.Cache.Path = v
	}
	for key, dst := range map[string]*int{EnvMaxSteps: &c.MaxSteps, EnvVerbosity: &c.Log.Verbosity} {
		v, ok := vars[key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v)
		}
		*dst = n
	}
	return c.Validate()
}
