// Package sqlite implements the nomination store on an embedded SQLite
// database, either in memory or in a single file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/nomination-archive-crawler/internal/nomination"
	"github.com/JakeFAU/nomination-archive-crawler/internal/storage"
)

// MemoryLocation selects a process-local database that is discarded on Close.
const MemoryLocation = ":memory:"

// Store persists nominations in SQLite.
type Store struct {
	db       *sql.DB
	dialect  storage.Dialect
	location string
}

var _ nomination.Store = (*Store)(nil)

// Open connects to the database at location. An empty location opens an
// in-memory database.
func Open(location string) (*Store, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		location = MemoryLocation
	}
	db, err := sql.Open("sqlite", location)
	if err != nil {
		return nil, nomination.StorageErrorf("open sqlite "+location, err)
	}
	// One connection: an in-memory database lives inside it, and the crawl
	// is a single writer anyway.
	db.SetMaxOpenConns(1)
	return &Store{db: db, dialect: storage.SQLite, location: location}, nil
}

// Location returns the database location the store was opened with.
func (s *Store) Location() string {
	return s.location
}

// Initialize creates the tables when they do not exist.
func (s *Store) Initialize(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return nomination.StorageErrorf("connect", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return nomination.StorageErrorf("enable foreign keys", err)
	}
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return nomination.StorageErrorf("create schema", err)
		}
	}
	return nil
}

// SaveSummary inserts the summary unless its id is already stored. It reports
// whether a row was written.
func (s *Store) SaveSummary(ctx context.Context, summary nomination.Summary) (bool, error) {
	query, args, err := s.dialect.InsertSummary(summary)
	if err != nil {
		return false, fmt.Errorf("build insert summary: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, nomination.StorageErrorf(fmt.Sprintf("insert summary %d", summary.ID), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, nomination.StorageErrorf("rows affected", err)
	}
	return n > 0, nil
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
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, nomination.StorageErrorf(fmt.Sprintf("insert %q for nomination %d", p.Role, nominationID), err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
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
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
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
	rows, err := s.db.QueryContext(ctx, query, args...)
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

// Close releases the database handle. An in-memory database is discarded.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) querySummaries(ctx context.Context, query string, args []any) ([]nomination.Summary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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
