// Package config loads service settings from the environment, reading a
// local .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/Shivanand-hulikatti/lending-library/internal/database"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// SMTP holds outgoing mail settings. An empty Host disables SMTP delivery.
type SMTP struct {
	Host     string
	Port     int `validate:"omitempty,min=1,max=65535"`
	Username string
	Password string
	From     string `validate:"required_with=Host,omitempty,email"`
}

// Config is everything the serve and migrate commands need.
type Config struct {
	Port     string `validate:"required,numeric"`
	Driver   string `validate:"oneof=postgres memory"`
	Database database.Config
	LogLevel slog.Level

	MaxActiveLoans int           `validate:"min=1"`
	LoanPeriod     time.Duration `validate:"min=24h"`
	NotifyWait     time.Duration `validate:"gte=0"`
	NotifyTimeout  time.Duration `validate:"gt=0"`

	SMTP SMTP

	// ReminderSchedule is a cron spec; empty disables the overdue sweep.
	ReminderSchedule string
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	var errs []error
	intVar := func(key string, fallback int) int {
		v, err := getInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	durVar := func(key string, fallback time.Duration) time.Duration {
		v, err := getDuration(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := Config{
		Port:   getEnv("PORT", "8080"),
		Driver: strings.ToLower(getEnv("STORAGE_DRIVER", DriverPostgres)),
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "library"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MaxActiveLoans: intVar("MAX_ACTIVE_LOANS", 3),
		LoanPeriod:     time.Duration(intVar("LOAN_PERIOD_DAYS", 15)) * 24 * time.Hour,
		NotifyWait:     durVar("NOTIFY_WAIT", 2*time.Second),
		NotifyTimeout:  durVar("NOTIFY_TIMEOUT", 30*time.Second),
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     intVar("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		ReminderSchedule: lookupEnv("REMINDER_SCHEDULE", "0 8 * * *"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lookupEnv is getEnv except that a variable set to "" is kept.
func lookupEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a duration", key, v)
	}
	return d, nil
}
