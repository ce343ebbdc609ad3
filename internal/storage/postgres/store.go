// Package postgres provides a Postgres-backed nomination store.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
	"github.com/JakeFAU/nomination-archive-crawler/internal/storage"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// IsDSN reports whether location names a Postgres server rather than a
// SQLite file.
func IsDSN(location string) bool {
	location = strings.TrimSpace(location)
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Store persists nominations in Postgres.
type Store struct {
	pool    pool
	dialect storage.Dialect
}

var _ nomination.Store = (*Store)(nil)

// NewStore connects a pool using cfg.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.location is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nomination.StorageErrorf("parse postgres dsn", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nomination.StorageErrorf("connect postgres", err)
	}
	return &Store{pool: p, dialect: storage.Postgres}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewStoreWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p, dialect: storage.Postgres}, nil
}

// Initialize creates the tables when they do not exist.
func (s *Store) Initialize(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return nomination.StorageErrorf("create schema", err)
		}
	}
	return nil
}

// SaveSummary inserts the summary unless its id is already stored.
func (s *Store) SaveSummary(ctx context.Context, summary nomination.Summary) (bool, error) {
	query, args, err := s.dialect.InsertSummary(summary)
	if err != nil {
		return false, fmt.Errorf("build insert summary: %w", err)
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, nomination.StorageErrorf(fmt.Sprintf("insert summary %d", summary.ID), err)
	}
	return tag.RowsAffected() > 0, nil
}

// PendingSummaries lists summaries whose detail page has not been stored.
func (s *Store) PendingSummaries(ctx context.Context) ([]nomination.Summary, error) {
	query, args, err := s.dialect.PendingSummaries()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}
	return s.querySummaries(ctx, query, args)
}

// SaveDetail inserts one row per person and returns how many were new.
func (s *Store) SaveDetail(ctx context.Context, nominationID int64, people []nomination.Person) (int, error) {
	inserted := 0
	for _, p := range people {
		p.NominationID = nominationID
		query, args, err := s.dialect.InsertPerson(p)
		if err != nil {
			return inserted, fmt.Errorf("build insert person: %w", err)
		}
		tag, err := s.pool.Exec(ctx, query, args...)
		if err != nil {
			return inserted, nomination.StorageErrorf(fmt.Sprintf("insert %q for nomination %d", p.Role, nominationID), err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// MarkFetched flags the nomination as complete.
func (s *Store) MarkFetched(ctx context.Context, nominationID int64) error {
	query, args, err := s.dialect.MarkFetched(nominationID)
	if err != nil {
		return fmt.Errorf("build mark fetched: %w", err)
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return nomination.StorageErrorf(fmt.Sprintf("mark %d fetched", nominationID), err)
	}
	return nil
}

// AllRecords returns every summary with its people in export order.
func (s *Store) AllRecords(ctx context.Context) ([]nomination.Record, error) {
	query, args, err := s.dialect.AllSummaries()
	if err != nil {
		return nil, fmt.Errorf("build summaries query: %w", err)
	}
	summaries, err := s.querySummaries(ctx, query, args)
	if err != nil {
		return nil, err
	}

	query, args, err = s.dialect.AllPeople()
	if err != nil {
		return nil, fmt.Errorf("build people query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nomination.StorageErrorf("query people", err)
	}
	defer rows.Close()

	var people []nomination.Person
	for rows.Next() {
		p, err := storage.ScanPerson(rows)
		if err != nil {
			return nil, nomination.StorageErrorf("read people", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nomination.StorageErrorf("read people", err)
	}
	return storage.AssembleRecords(summaries, people), nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *Store) querySummaries(ctx context.Context, query string, args []any) ([]nomination.Summary, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nomination.StorageErrorf("query summaries", err)
	}
	defer rows.Close()

	var summaries []nomination.Summary
	for rows.Next() {
		summary, err := storage.ScanSummary(rows)
		if err != nil {
			return nil, nomination.StorageErrorf("read summaries", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, nomination.StorageErrorf("read summaries", err)
	}
	return summaries, nil
}
