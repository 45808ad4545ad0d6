// Package store persists the mirrored entities to Postgres. Every write path
// is an upsert on the entity's natural key, and every batch is one
// transaction: it commits whole or not at all.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/capitoldata/congress-mirror/model"
)

// Store wraps the shared connection pool. Units of work acquire a connection
// per call; no transaction is held across a network suspension point.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// BillWatermarks loads the last-synchronized timestamp of every bill in one
// congress, keyed by natural key. A nil value means the row exists but has
// never completed a sync.
func (s *Store) BillWatermarks(ctx context.Context, congress int) (map[model.BillKey]*time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT congress, bill_type, bill_number, last_synced_at FROM bills WHERE congress = $1`,
		congress)
	if err != nil {
		return nil, fmt.Errorf("select bill watermarks: %w", err)
	}
	defer rows.Close()

	watermarks := make(map[model.BillKey]*time.Time)
	for rows.Next() {
		var key model.BillKey
		var syncedAt *time.Time
		if err := rows.Scan(&key.Congress, &key.Type, &key.Number, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan bill watermark: %w", err)
		}
		watermarks[key.Normalize()] = syncedAt
	}
	return watermarks, rows.Err()
}

// MemberWatermarks loads the last-synchronized timestamp of every member,
// keyed by bioguide identifier.
func (s *Store) MemberWatermarks(ctx context.Context) (map[string]*time.Time, error) {
	rows, err := s.pool.Query(ctx, `SELECT bioguide_id, last_synced_at FROM members`)
	if err != nil {
		return nil, fmt.Errorf("select member watermarks: %w", err)
	}
	defer rows.Close()

	watermarks := make(map[string]*time.Time)
	for rows.Next() {
		var id string
		var syncedAt *time.Time
		if err := rows.Scan(&id, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan member watermark: %w", err)
		}
		watermarks[id] = syncedAt
	}
	return watermarks, rows.Err()
}

// ExistingMembers reports which of the given bioguide identifiers already
// have a row.
func (s *Store) ExistingMembers(ctx context.Context, bioguideIDs []string) (map[string]bool, error) {
	if len(bioguideIDs) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT bioguide_id FROM members WHERE bioguide_id = ANY($1)`, bioguideIDs)
	if err != nil {
		return nil, fmt.Errorf("select existing members: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool, len(bioguideIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan member id: %w", err)
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

// ExistingCommittees reports which of the given system codes already have a
// row.
func (s *Store) ExistingCommittees(ctx context.Context, systemCodes []string) (map[string]bool, error) {
	if len(systemCodes) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT system_code FROM committees WHERE system_code = ANY($1)`, systemCodes)
	if err != nil {
		return nil, fmt.Errorf("select existing committees: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool, len(systemCodes))
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan committee code: %w", err)
		}
		existing[code] = true
	}
	return existing, rows.Err()
}

// ReportCounts computes the freshness inputs for one committee and congress:
// the total mirrored reports and the subset with at least one linked bill.
func (s *Store) ReportCounts(ctx context.Context, committeeCode string, congress int) (total, linked int, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE EXISTS (
		           SELECT 1 FROM report_bills rb WHERE rb.report_id = cr.id))
		FROM committee_reports cr
		WHERE cr.committee_code = $1 AND cr.congress = $2`,
		committeeCode, congress).Scan(&total, &linked)
	if err != nil {
		return 0, 0, fmt.Errorf("count reports for %s: %w", committeeCode, err)
	}
	return total, linked, nil
}

// ensureBill inserts a stub row for a bill known only by natural key and
// returns its surrogate id. The no-op update on conflict makes RETURNING work
// for pre-existing rows without touching their fields or watermark.
func ensureBill(ctx context.Context, tx pgx.Tx, key model.BillKey, title string) (int64, error) {
	key = key.Normalize()
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO bills (congress, bill_type, bill_number, title)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (congress, bill_type, bill_number)
			DO UPDATE SET congress = excluded.congress
		RETURNING id`,
		key.Congress, key.Type, key.Number, title).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ensure bill %s: %w", key, err)
	}
	return id, nil
}

// nullString converts an absent upstream field to SQL NULL so COALESCE-style
// update clauses keep the stored value.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
