// Package postgres persists saved games in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/config"
)

// ErrNotMigrated reports a reachable database that has no saves table.
var ErrNotMigrated = errors.New("saves table missing, run the migrations first")

const (
	applicationName = "dreamrealm"
	pingTimeout     = 5 * time.Second
)

// DB owns the connection pool behind the PostgreSQL save backend.
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open connects to the save database described by cfg. It does not require
// the schema to exist yet, so migrations can run against the result.
//
// Precondition: cfg passed config validation; logger must be non-nil.
// Postcondition: Returns a pinged DB or a non-nil error.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		panic("postgres.Open: logger must not be nil")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	db := &DB{pool: pool, logger: logger}
	if err := db.ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	logger.Info("save database connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return db, nil
}

func (db *DB) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.pool.Ping(ctx)
}

// Ready checks that the database answers and that the saves table exists.
//
// Postcondition: Returns ErrNotMigrated when the schema has not been applied.
func (db *DB) Ready(ctx context.Context) error {
	if err := db.ping(ctx); err != nil {
		return fmt.Errorf("pinging save database: %w", err)
	}
	var present bool
	if err := db.pool.QueryRow(ctx, `SELECT to_regclass('saves') IS NOT NULL`).Scan(&present); err != nil {
		return fmt.Errorf("checking saves table: %w", err)
	}
	if !present {
		return ErrNotMigrated
	}
	return nil
}

// Saves returns the save repository on this database.
func (db *DB) Saves() *SaveRepository {
	return NewSaveRepository(db.pool)
}

// Pool exposes the pgx pool for tests and tooling.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close releases the pool. The DB is unusable afterwards.
func (db *DB) Close() {
	stat := db.pool.Stat()
	db.logger.Debug("closing save database",
		zap.Int64("acquires", stat.AcquireCount()),
		zap.Int32("idle", stat.IdleConns()),
	)
	db.pool.Close()
}
