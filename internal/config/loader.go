package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultPath = "./config.yaml"

// Load reads the YAML file named by CONFIG_PATH, or ./config.yaml when it
// exists, and then the environment. Environment values win over the file;
// env-default tags fill what neither sets.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit file. An explicit file must exist.
func LoadFile(path string) (*Config, error) {
	source, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if source == "" {
		err = cleanenv.ReadEnv(&cfg)
	} else {
		err = cleanenv.ReadConfig(source, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", sourceName(source), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// resolvePath returns "" when only the environment should be read.
func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config: file %s: %w", path, err)
		}
		return path, nil
	}
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("config: file %s: %w", defaultPath, err)
	}
	return "", nil
}

func sourceName(path string) string {
	if path == "" {
		return "environment"
	}
	return path
}

// Describe lists every environment variable Load reads, with its default.
func Describe() (string, error) {
	header := "Environment variables:"
	return cleanenv.GetDescription(&Config{}, &header)
}
