package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const (
	defaultPort            = "8080"
	defaultCacheCapacity   = 1024
	defaultResolveDeadline = 5 * time.Second
	defaultInputCeiling    = 92
)

type Config struct {
	port                   string
	cacheCapacity          int
	resolveDeadline        time.Duration
	inputCeiling           int64
	apiTokens              []string
	cloudSQLUnixSocketPath string
	dBPassword             string
	dBUsername             string
	sentryDSN              string
	env                    environment
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) CacheCapacity() int {
	return c.cacheCapacity
}

func (c *Config) ResolveDeadline() time.Duration {
	return c.resolveDeadline
}

func (c *Config) InputCeiling() int64 {
	return c.inputCeiling
}

func (c *Config) APITokens() []string {
	return c.apiTokens
}

func (c *Config) CloudSQLUnixSocketPath() string {
	return c.cloudSQLUnixSocketPath
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %s, cacheCapacity: %d, resolveDeadline: %s, inputCeiling: %d, ...}",
		string(c.env), c.port, c.cacheCapacity, c.resolveDeadline, c.inputCeiling,
	)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}
	invalidValue := func(key, value string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, value)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("MEMOLITH_ENVIRONMENT")
	if !ok {
		return missingKey("MEMOLITH_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return invalidValue("MEMOLITH_ENVIRONMENT", rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	requiredInDeployments := env == production || env == staging

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	cacheCapacity := defaultCacheCapacity
	if rawCapacity := os.Getenv("MEMOLITH_CACHE_CAPACITY"); rawCapacity != "" {
		parsed, err := strconv.Atoi(rawCapacity)
		if err != nil || parsed <= 0 {
			return invalidValue("MEMOLITH_CACHE_CAPACITY", rawCapacity)
		}
		cacheCapacity = parsed
	} else if requiredInDeployments {
		return missingKey("MEMOLITH_CACHE_CAPACITY")
	}

	resolveDeadline := defaultResolveDeadline
	if rawDeadline := os.Getenv("MEMOLITH_RESOLVE_DEADLINE"); rawDeadline != "" {
		parsed, err := time.ParseDuration(rawDeadline)
		if err != nil || parsed <= 0 {
			return invalidValue("MEMOLITH_RESOLVE_DEADLINE", rawDeadline)
		}
		resolveDeadline = parsed
	} else if requiredInDeployments {
		return missingKey("MEMOLITH_RESOLVE_DEADLINE")
	}

	inputCeiling := int64(defaultInputCeiling)
	if rawCeiling := os.Getenv("MEMOLITH_INPUT_CEILING"); rawCeiling != "" {
		parsed, err := strconv.ParseInt(rawCeiling, 10, 64)
		if err != nil || parsed < 0 {
			return invalidValue("MEMOLITH_INPUT_CEILING", rawCeiling)
		}
		inputCeiling = parsed
	}

	apiTokens := []string{}
	if rawTokens := os.Getenv("MEMOLITH_API_TOKENS"); rawTokens != "" {
		for _, token := range strings.Split(rawTokens, ",") {
			token = strings.TrimSpace(token)
			if token != "" {
				apiTokens = append(apiTokens, token)
			}
		}
	}
	if requiredInDeployments && len(apiTokens) == 0 {
		return missingKey("MEMOLITH_API_TOKENS")
	}

	cloudSQLUnixSocketPath := os.Getenv("CLOUDSQL_UNIX_SOCKET")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbUsername := os.Getenv("DB_USERNAME")
	sentryDSN := os.Getenv("SENTRY_DSN")

	if requiredInDeployments {
		if cloudSQLUnixSocketPath == "" {
			return missingKey("CLOUDSQL_UNIX_SOCKET")
		}
		if dbUsername == "" {
			return missingKey("DB_USERNAME")
		}
		if dbPassword == "" {
			return missingKey("DB_PASSWORD")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	return Config{
		port:                   port,
		cacheCapacity:          cacheCapacity,
		resolveDeadline:        resolveDeadline,
		inputCeiling:           inputCeiling,
		apiTokens:              apiTokens,
		cloudSQLUnixSocketPath: cloudSQLUnixSocketPath,
		dBPassword:             dbPassword,
		dBUsername:             dbUsername,
		sentryDSN:              sentryDSN,
		env:                    env,
	}, nil
}
