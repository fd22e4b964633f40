package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// ErrConnectionLost is returned when a store does not answer a ping.
var ErrConnectionLost = errors.New("database connection lost")

var (
	db        *gorm.DB
	stagingDb *gorm.DB
	dbMu      sync.RWMutex
)

// GetDB returns the primary store connection.
func GetDB() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}

// GetStagingDB returns the staging store connection.
func GetStagingDB() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return stagingDb
}

func dsn(s DatabaseSettings) string {
	network := "tcp"
	address := fmt.Sprintf("%s:%s", s.Host, s.Port)

	// Cloud SQL unix socket, e.g. PRPO_DB_HOST=/cloudsql/<CONNECTION_NAME>
	if strings.HasPrefix(s.Host, "/cloudsql/") {
		network = "unix"
		address = s.Host
	}

	return fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true&loc=Local",
		s.User,
		s.Password,
		network,
		address,
		s.Name,
	)
}

// ConnectDatabaseWithRetry opens both the primary and the staging connection,
// retrying each with exponential backoff until it succeeds or ctx is done.
func ConnectDatabaseWithRetry(ctx context.Context, settings *Settings) error {
	primary, err := openWithRetry(ctx, "primary", settings.Primary)
	if err != nil {
		return err
	}
	staging, err := openWithRetry(ctx, "staging", settings.Staging)
	if err != nil {
		return err
	}
	dbMu.Lock()
	db = primary
	stagingDb = staging
	dbMu.Unlock()
	return nil
}

func openWithRetry(ctx context.Context, name string, s DatabaseSettings) (*gorm.DB, error) {
	var attempt int
	for {
		attempt++
		conn, err := open(s)
		if err == nil {
			GetLogger().WithFields(logrus.Fields{
				"store":   name,
				"attempt": attempt,
			}).Info("connected to database")
			return conn, nil
		}

		sleep := retryDelay(attempt)
		GetLogger().WithFields(logrus.Fields{
			"store":   name,
			"attempt": attempt,
			"retry":   sleep.String(),
		}).Warnf("failed to connect database: %v", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect %s database: %w", name, ctx.Err())
		case <-time.After(sleep):
		}
	}
}

// retryDelay doubles from 2s and stops at 30s.
func retryDelay(attempt int) time.Duration {
	return min(time.Second*time.Duration(1<<min(attempt, 5)), 30*time.Second)
}

func open(s DatabaseSettings) (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(dsn(s)), initConfig())
	if err != nil {
		return nil, err
	}
	// Env overrides (optional):
	// - DB_MAX_OPEN_CONNS (default 10)
	// - DB_MAX_IDLE_CONNS (default 5)
	// - DB_CONN_MAX_LIFETIME_SECONDS (default 300)
	if sqlDB, derr := conn.DB(); derr == nil && sqlDB != nil {
		maxOpen := intFromEnv("DB_MAX_OPEN_CONNS", 10)
		maxIdle := intFromEnv("DB_MAX_IDLE_CONNS", 5)
		connMaxLife := time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second

		if maxOpen > 0 {
			sqlDB.SetMaxOpenConns(maxOpen)
		}
		if maxIdle >= 0 {
			sqlDB.SetMaxIdleConns(maxIdle)
		}
		if connMaxLife > 0 {
			sqlDB.SetConnMaxLifetime(connMaxLife)
		}
	}
	if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	return conn, nil
}

// Connections checks and re-establishes both store connections.
type Connections struct {
	Settings *Settings
}

// Ping returns ErrConnectionLost when either store is unreachable.
func (c *Connections) Ping(ctx context.Context) error {
	for name, conn := range map[string]*gorm.DB{"primary": GetDB(), "staging": GetStagingDB()} {
		if err := pingDB(ctx, conn); err != nil {
			return fmt.Errorf("%s: %w: %v", name, ErrConnectionLost, err)
		}
	}
	return nil
}

// Reconnect reopens both connections once, without retrying.
func (c *Connections) Reconnect(ctx context.Context) error {
	primary, err := open(c.Settings.Primary)
	if err != nil {
		return fmt.Errorf("primary: %w: %v", ErrConnectionLost, err)
	}
	staging, err := open(c.Settings.Staging)
	if err != nil {
		closeDB(primary)
		return fmt.Errorf("staging: %w: %v", ErrConnectionLost, err)
	}
	dbMu.Lock()
	oldPrimary, oldStaging := db, stagingDb
	db = primary
	stagingDb = staging
	dbMu.Unlock()
	closeDB(oldPrimary)
	closeDB(oldStaging)
	return nil
}

func pingDB(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return errors.New("not connected")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func closeDB(conn *gorm.DB) {
	if conn == nil {
		return
	}
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// InitConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         WriteGormLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
	return newLogger
}

// table names are fixed by the shared schema
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: true,
		TablePrefix:   "",
	}
}

// WriteGormLog sends gorm's log to GORM_LOG when set.
func WriteGormLog() logger.Interface {
	logFile := os.Getenv("GORM_LOG")
	if logFile == "" {
		return initLog()
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return initLog()
	}
	newLogger := logger.New(log.New(io.MultiWriter(f), "\r\n", log.LstdFlags), logger.Config{
		Colorful:      false,
		LogLevel:      logger.Info,
		SlowThreshold: time.Second,
	})
	return newLogger
}
