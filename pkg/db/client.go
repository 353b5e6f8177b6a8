package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/HydrikMasqued/quartermaster/pkg/config"
	pkgerrors "github.com/HydrikMasqued/quartermaster/pkg/errors"
	"github.com/HydrikMasqued/quartermaster/pkg/logger"
)

// Client owns the single shared sqlite connection. Every component routes its
// statements through here; nothing else opens a connection of its own.
//
// Reconnection is serialized: one goroutine rebuilds the handle while
// concurrent callers block on the mutex. Normal statement execution does not
// take the lock path beyond the pointer read.
type Client struct {
	cfg  config.DBConfig
	logg *logger.Logger

	mu   sync.Mutex
	conn *gorm.DB
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New boots the shared sqlite handle using the provided configuration.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	c := &Client{cfg: cfg, logg: logg}
	if _, err := c.acquire(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// acquire returns the live connection, creating it on first use or after a
// discard. Idempotent; only one goroutine (re)creates at a time.
func (c *Client) acquire(ctx context.Context) (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(c.cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite connection: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}

	// One writer, one connection: the cooperative shared-handle model the
	// ledger is built around. WAL and busy-timeout ride in on the DSN.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if c.logg != nil {
		c.logg.Info(ctx, "database connection established")
	}

	c.conn = conn
	return conn, nil
}

// discard drops the current connection so the next acquire rebuilds it.
func (c *Client) discard() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	if sqlDB, err := c.conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	c.conn = nil
}

// Execute runs fn against the shared handle, retrying transient failures with
// exponential backoff. Each failed attempt discards the connection so the next
// one reconnects from scratch. After the attempt ceiling the last error is
// surfaced as a storage-unavailable failure.
func (c *Client) Execute(ctx context.Context, fn func(conn *gorm.DB) error) error {
	backoff := retry.WithMaxRetries(uint64(c.maxRetries()), retry.NewExponential(c.baseDelay()))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, err := c.acquire(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if err := fn(conn.WithContext(ctx)); err != nil {
			if !isRetryable(err) {
				return err
			}
			c.discard()
			if c.logg != nil {
				c.logg.Warn(ctx, "statement failed, connection discarded for retry")
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if !isRetryable(err) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorageUnavailable, err, "storage retries exhausted")
}

// WithTx executes fn inside a transaction on the shared handle, rolling back
// on error/panic. The whole transaction is one Execute attempt, so a transient
// failure retries it from the top rather than resuming mid-sequence.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.Execute(ctx, func(conn *gorm.DB) error {
		tx := conn.Begin()
		if tx.Error != nil {
			return tx.Error
		}

		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
				panic(r)
			}
		}()

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}

		return tx.Commit().Error
	})
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	conn, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the shared connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	c.conn = nil
	return sqlDB.Close()
}

func (c *Client) maxRetries() int {
	if c.cfg.MaxRetries > 0 {
		return c.cfg.MaxRetries
	}
	return 5
}

func (c *Client) baseDelay() time.Duration {
	if c.cfg.RetryBaseDelay > 0 {
		return c.cfg.RetryBaseDelay
	}
	return 100 * time.Millisecond
}

// isRetryable separates transient storage failures from results the caller
// has to handle itself. Not-found and cancellation never warrant a reconnect.
func isRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case IsBusy(err):
		return true
	}
	return true
}
