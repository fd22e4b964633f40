package config

import (
	"os"
	"strings"
)

// SkipMigrations disables AutoMigrate of the tables this service owns.
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	return envBool("SKIP_MIGRATIONS")
}

// CreateAlertTopic makes the notifier create the alert topic when it does not exist yet.
//
// Set via env:
// - PRPO_CREATE_ALERT_TOPIC=true
func CreateAlertTopic() bool {
	return envBool("PRPO_CREATE_ALERT_TOPIC")
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
