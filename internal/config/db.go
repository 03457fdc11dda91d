package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

const (
	connectAttempts      = 5
	connectRetryInterval = 5 * time.Second
)

// DBConfig holds database connection parameters
type DBConfig struct {
	Host     string `mapstructure:"DB_HOST"`
	Port     string `mapstructure:"DB_PORT"`
	User     string `mapstructure:"DB_USER"`
	Password string `mapstructure:"DB_PASSWORD"`
	Name     string `mapstructure:"DB_NAME"`
	SSLMode  string `mapstructure:"DB_SSLMODE"`
}

func (c DBConfig) validate() error {
	if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
		return errors.New("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}
	return nil
}

// DSN builds a libpq keyword/value connection string
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// ConnectDB establishes a connection to the PostgreSQL database, retrying until it answers a ping
func ConnectDB(ctx context.Context, cfg DBConfig, log logrus.FieldLogger) (*pgxpool.Pool, error) {
	return connectWithBackoff(ctx, cfg, log, retry.WithMaxRetries(connectAttempts-1, retry.NewConstant(connectRetryInterval)))
}

func connectWithBackoff(ctx context.Context, cfg DBConfig, log logrus.FieldLogger, backoff retry.Backoff) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	var pool *pgxpool.Pool
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			err = p.Ping(ctx)
			if err == nil {
				pool = p
				return nil
			}
			p.Close()
		}
		log.WithFields(logrus.Fields{"attempt": attempt, "error": err}).Warn("failed to connect to database")
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", attempt, err)
	}

	log.Info("successfully connected to PostgreSQL")
	return pool, nil
}

// Execer runs a statement
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		first_name TEXT,
		last_name TEXT,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}
	return nil
}
