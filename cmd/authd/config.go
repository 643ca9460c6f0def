package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/authd/internal/logger"
)

const (
	defaultListenAddr   = "localhost:8081"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
	defaultAlgorithm    = "HS256"
	defaultAccessTTL    = 15 * time.Minute
	defaultRefreshTTL   = 7 * 24 * time.Hour
	defaultReapInterval = time.Hour
)

type Config struct {
	// Default logging level
	LogLevel string

	// Environment (dev, prod)
	Environment string

	// Address on which the authd service will be run
	ListenAddr string

	// Database to connect to
	DatabaseDSN string

	// Secret keys for signing JWT payloads
	// Access and refresh tokens are signed with separate keys
	AccessSecretKey  string
	RefreshSecretKey string

	// JWT signing algorithm
	Algorithm string

	// Token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// How often expired refresh token records are removed
	ReapInterval time.Duration

	// Default accounts seeded at startup. Skipped when empty
	AdminEmail    string
	AdminPassword string
	GuestEmail    string
	GuestPassword string
}

func NewConfig() *Config {
	return &Config{
		LogLevel:        defaultLoggingLevel,
		Environment:     defaultEnvironment,
		ListenAddr:      defaultListenAddr,
		Algorithm:       defaultAlgorithm,
		AccessTokenTTL:  defaultAccessTTL,
		RefreshTokenTTL: defaultRefreshTTL,
		ReapInterval:    defaultReapInterval,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	// Parse value as a whole number of the given unit
	setDuration := func(o *time.Duration, unit time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				*o = time.Duration(n) * unit
			}
		}
	}

	envMap := map[string]func(string){
		"RUN_ADDRESS":                 setString(&c.ListenAddr),
		"DATABASE_URI":                setString(&c.DatabaseDSN),
		"ACCESS_TOKEN_SECRET_KEY":     setString(&c.AccessSecretKey),
		"REFRESH_TOKEN_SECRET_KEY":    setString(&c.RefreshSecretKey),
		"ALGORITHM":                   setString(&c.Algorithm),
		"ACCESS_TOKEN_EXPIRE_MINUTES": setDuration(&c.AccessTokenTTL, time.Minute),
		"REFRESH_TOKEN_EXPIRE_DAYS":   setDuration(&c.RefreshTokenTTL, 24*time.Hour),
		"TOKEN_REAP_INTERVAL_MINUTES": setDuration(&c.ReapInterval, time.Minute),
		"LOG_LEVEL":                   setString(&c.LogLevel),
		"ENVIRONMENT":                 setString(&c.Environment),
		"ADMIN_EMAIL":                 setString(&c.AdminEmail),
		"ADMIN_PASSWORD":              setString(&c.AdminPassword),
		"GUEST_EMAIL":                 setString(&c.GuestEmail),
		"GUEST_PASSWORD":              setString(&c.GuestPassword),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("authd", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVar(&c.AccessSecretKey, "access-secret", c.AccessSecretKey, "Access token secret key")
	fs.StringVar(&c.RefreshSecretKey, "refresh-secret", c.RefreshSecretKey, "Refresh token secret key")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")

	return fs.Parse(args)
}
