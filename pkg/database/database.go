// Package database owns the PostgreSQL connection pool and ties its
// readiness and close to the service lifecycle.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/tally/pkg/lifecycle"
)

// connectAttempts bounds the startup pings. Attempt n waits n seconds
// before the next one.
const connectAttempts = 3

// System manages database connections and lifecycle coordination.
type System interface {
	lifecycle.ReadinessChecker

	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type pool struct {
	db          *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	ready       atomic.Bool
}

// New opens a pgx-backed pool sized from cfg. No connection is made until
// Start's startup hook pings the server.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &pool{
		db:          db,
		logger:      logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (p *pool) Connection() *sql.DB { return p.db }

// Ready reports whether a startup ping succeeded and the pool is still open.
func (p *pool) Ready() bool { return p.ready.Load() }

func (p *pool) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		if err := p.connect(lc.Context()); err != nil {
			p.logger.Error("database unavailable", "error", fmt.Errorf("%w: %w", ErrNotReady, err))
			return
		}
		p.ready.Store(true)
		p.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Drained()
		p.ready.Store(false)

		stats := p.db.Stats()
		if err := p.db.Close(); err != nil {
			p.logger.Error("database close failed", "error", err)
			return
		}
		p.logger.Info("database connection closed",
			"open", stats.OpenConnections,
			"in_use", stats.InUse,
			"wait_count", stats.WaitCount,
		)
	})

	return nil
}

func (p *pool) connect(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, p.connTimeout)
		err = p.db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		p.logger.Warn("database ping failed", "attempt", attempt, "error", err)
		if attempt == connectAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return err
}
