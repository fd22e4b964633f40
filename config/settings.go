package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// ConfigurationError is fatal: the service exits before the poll loop starts.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}

// DatabaseSettings describes one MySQL connection.
type DatabaseSettings struct {
	Host     string `validate:"required"`
	Port     string
	User     string `validate:"required"`
	Password string `validate:"required"`
	Name     string `validate:"required"`
}

type Settings struct {
	PrDataPath     string `validate:"required"`
	PoDataPath     string `validate:"required"`
	PrPassphrase   string `validate:"required"`
	PoPassphrase   string `validate:"required"`
	Primary        DatabaseSettings
	Staging        DatabaseSettings
	PollInterval   time.Duration `validate:"gt=0"`
	ReconnectDelay time.Duration `validate:"gt=0"`
	RedisAddress   string
	AlertTopic     string
	ReportBucket   string
	StatusPort     string
	Timezone       string
	LogLevel       string
	LogFile        string
}

var validate = validator.New()

func init() {
	// Load env from .env
	godotenv.Load()
}

// LoadSettings reads settings from the environment, optionally seeded from PRPO_CONFIG_FILE.
func LoadSettings() (*Settings, error) {
	if file := strings.TrimSpace(os.Getenv("PRPO_CONFIG_FILE")); file != "" {
		if err := godotenv.Load(file); err != nil {
			return nil, &ConfigurationError{Field: "PRPO_CONFIG_FILE", Reason: err.Error()}
		}
	}

	s := &Settings{
		PrDataPath:   strings.TrimSpace(os.Getenv("PRPO_PR_DATA_PATH")),
		PoDataPath:   strings.TrimSpace(os.Getenv("PRPO_PO_DATA_PATH")),
		PrPassphrase: os.Getenv("PRPO_GPG_PR"),
		PoPassphrase: os.Getenv("PRPO_GPG_PO"),
		Primary: DatabaseSettings{
			Host:     os.Getenv("PRPO_DB_HOST"),
			Port:     envDefault("PRPO_DB_PORT", "3306"),
			User:     os.Getenv("PRPO_DB_USERNAME"),
			Password: os.Getenv("PRPO_DB_PASSWORD"),
			Name:     os.Getenv("PRPO_DB_NAME"),
		},
		Staging: DatabaseSettings{
			Host:     os.Getenv("PRPO2_DB_HOST"),
			Port:     envDefault("PRPO2_DB_PORT", "3306"),
			User:     os.Getenv("PRPO2_DB_USERNAME"),
			Password: os.Getenv("PRPO2_DB_PASSWORD"),
			Name:     os.Getenv("PRPO2_DB_NAME"),
		},
		PollInterval:   time.Duration(intFromEnv("PRPO_POLL_INTERVAL_SECONDS", 600)) * time.Second,
		ReconnectDelay: time.Duration(intFromEnv("PRPO_RECONNECT_BACKOFF_SECONDS", 60)) * time.Second,
		RedisAddress:   strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
		AlertTopic:     strings.TrimSpace(os.Getenv("PRPO_ALERT_TOPIC")),
		ReportBucket:   strings.TrimSpace(os.Getenv("PRPO_REPORT_BUCKET")),
		StatusPort:     envDefault("PRPO_STATUS_PORT", "8080"),
		Timezone:       envDefault("PRPO_TIMEZONE", "UTC"),
		LogLevel:       envDefault("LOG_LEVEL", "info"),
		LogFile:        strings.TrimSpace(os.Getenv("PRPO_LOG_FILE")),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate returns the first failing field as a ConfigurationError.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		if _, lerr := time.LoadLocation(s.Timezone); lerr != nil {
			return &ConfigurationError{Field: "Timezone", Reason: lerr.Error()}
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ConfigurationError{Field: verrs[0].Namespace(), Reason: "failed " + verrs[0].Tag()}
	}
	return &ConfigurationError{Field: "settings", Reason: err.Error()}
}

// Location is the clock used for the automation window.
func (s *Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envDefault(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
