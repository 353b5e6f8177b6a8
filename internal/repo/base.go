package repo

import (
	"context"

	"gorm.io/gorm"
)

// Executor runs one statement against the storage handle. The production
// implementation is db.Client, whose Execute resolves the live connection on
// every call, retries transient failures, and rebuilds the connection after a
// discard. Repositories never hold a *gorm.DB of their own outside a
// transaction, so a reconnect is transparent to them.
type Executor interface {
	Execute(ctx context.Context, fn func(conn *gorm.DB) error) error
}

// Base is the shared foundation for domain repositories: every statement is
// routed through the Executor so the retry and reconnect policy applies
// uniformly to reads, appends, and deletes.
type Base struct {
	exec Executor
}

// NewBase constructs a Base routing statements through the given executor.
func NewBase(exec Executor) Base {
	return Base{exec: exec}
}

// Run executes fn through the configured executor. fn may be invoked more
// than once under retry, so it must reset any output it scans into.
func (b Base) Run(ctx context.Context, fn func(conn *gorm.DB) error) error {
	return b.exec.Execute(ctx, fn)
}

// Direct wraps a raw connection as an Executor with no retry policy. Used for
// transaction rebinding, where re-running a failed statement would replay part
// of the transaction, and for tests on a plain connection.
func Direct(db *gorm.DB) Executor {
	return directExecutor{db: db}
}

type directExecutor struct {
	db *gorm.DB
}

func (e directExecutor) Execute(ctx context.Context, fn func(conn *gorm.DB) error) error {
	if ctx == nil {
		return fn(e.db)
	}
	return fn(e.db.WithContext(ctx))
}
