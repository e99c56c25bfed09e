// Package configloader loads service configuration from a yaml file, a .env file and the environment.
package configloader

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Validator interface {
	Validate() error
}

const (
	defaultConfigFile = "config.yaml"
	defaultEnvFile    = ".env"
)

// Options tells Load where to look for its sources. Empty fields fall back to the defaults.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load reads the configuration for the named application from the default locations.
func Load[T Validator](appName string) (T, error) {
	return LoadWith[T](appName, Options{})
}

// LoadWith reads the configuration in increasing priority: yaml file, .env file, process environment.
// Environment keys are <APPNAME>_<SECTION>_<KEY>, e.g. STOREFRONT_BACKEND_BASEURL.
func LoadWith[T Validator](appName string, opts Options) (T, error) {
	var cfg T
	k := koanf.New(".")

	configFile := opts.ConfigFile
	if configFile == "" {
		configFile = defaultConfigFile
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = defaultEnvFile
	}
	envPrefix := fmt.Sprintf("%s_", strings.ToUpper(appName))

	// 1. Load configuration from yaml file
	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config file '%s': %v", configFile, err)
		}
	}

	// 2. Load environment variables from .env file
	envTransformer := keyTransformer(envPrefix)
	if envFileMap, err := godotenv.Read(envFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !strings.HasPrefix(strings.ToUpper(key), envPrefix) {
				continue
			}
			envMap[envTransformer(key)] = value
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 3. Load environment variables from the system, the highest priority
	if err := k.Load(env.Provider(envPrefix, ".", envTransformer), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	// 4. Unmarshal the configuration into the Config struct
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}

	// 5. Validate the configuration
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// keyTransformer maps STOREFRONT_BACKEND_BASEURL to backend.baseurl.
func keyTransformer(envPrefix string) func(string) string {
	return func(key string) string {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, strings.ToLower(envPrefix))
		return strings.ReplaceAll(key, "_", ".")
	}
}
