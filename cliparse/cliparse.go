package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port            int    `yaml:"port"`
	DatabaseURL     string `yaml:"database_url"`
	DatabaseType    string `yaml:"database_type"`
	TurnstileSecret string `yaml:"turnstile_secret"`
	LogFormat       string `yaml:"log_format"`
}

// ParseFlags builds the configuration from CLI flags, an optional YAML
// config file, and environment variables, in that order of precedence.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var configFile string

	fs := flag.NewFlagSet("challenge-server", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&configFile, "c", "", "YAML config file")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TurnstileSecret, "turnstile-secret", "", "Turnstile secret key (prefer env; empty disables CAPTCHA)")
	fs.StringVar(&cfg.LogFormat, "log-format", "", "Log format (json or text)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fill unset values from the config file, if one was given
	if configFile != "" {
		fileCfg, err := loadConfigFile(configFile)
		if err != nil {
			return Config{}, err
		}
		if cfg.Port == 0 {
			cfg.Port = fileCfg.Port
		}
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = fileCfg.DatabaseURL
		}
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = fileCfg.DatabaseType
		}
		if cfg.TurnstileSecret == "" {
			cfg.TurnstileSecret = fileCfg.TurnstileSecret
		}
		if cfg.LogFormat == "" {
			cfg.LogFormat = fileCfg.LogFormat
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 8787 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q (sqlite or postgres)", cfg.DatabaseType)
	}

	// CAPTCHA secret is optional: empty means verification is disabled,
	// which is the dev/test mode.
	if cfg.TurnstileSecret == "" {
		cfg.TurnstileSecret = os.Getenv("TURNSTILE_SECRET_KEY")
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = os.Getenv("LOG_FORMAT")
		if cfg.LogFormat == "" {
			cfg.LogFormat = "json"
		}
	}

	return cfg, nil
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
