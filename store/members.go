package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/capitoldata/congress-mirror/model"
)

// memberUpsert writes one member row without touching the watermark. Optional
// fields coalesce against the stored value so a stub insert never blanks out
// a previously full row, and a full row is never degraded by a later stub.
const memberUpsert = `
	INSERT INTO members (
		bioguide_id, first_name, middle_name, last_name, full_name,
		party, state, district, image_url, is_current
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (bioguide_id) DO UPDATE SET
		first_name = COALESCE(NULLIF(excluded.first_name, ''), members.first_name),
		middle_name = COALESCE(NULLIF(excluded.middle_name, ''), members.middle_name),
		last_name = COALESCE(NULLIF(excluded.last_name, ''), members.last_name),
		full_name = COALESCE(NULLIF(excluded.full_name, ''), members.full_name),
		party = COALESCE(NULLIF(excluded.party, ''), members.party),
		state = COALESCE(NULLIF(excluded.state, ''), members.state),
		district = COALESCE(excluded.district, members.district),
		image_url = COALESCE(NULLIF(excluded.image_url, ''), members.image_url),
		is_current = excluded.is_current`

// memberBatchUpsert is the batch-write variant: the watermark is carried in
// both the insert and update branches, so a first-time insert advances it
// just like a refresh does.
const memberBatchUpsert = `
	INSERT INTO members (
		bioguide_id, first_name, middle_name, last_name, full_name,
		party, state, district, image_url, is_current, last_synced_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (bioguide_id) DO UPDATE SET
		first_name = COALESCE(NULLIF(excluded.first_name, ''), members.first_name),
		middle_name = COALESCE(NULLIF(excluded.middle_name, ''), members.middle_name),
		last_name = COALESCE(NULLIF(excluded.last_name, ''), members.last_name),
		full_name = COALESCE(NULLIF(excluded.full_name, ''), members.full_name),
		party = COALESCE(NULLIF(excluded.party, ''), members.party),
		state = COALESCE(NULLIF(excluded.state, ''), members.state),
		district = COALESCE(excluded.district, members.district),
		image_url = COALESCE(NULLIF(excluded.image_url, ''), members.image_url),
		is_current = excluded.is_current,
		last_synced_at = excluded.last_synced_at`

// UpsertMembers writes member rows outside any batch transaction. The
// resolver uses it to make referenced members visible before a dependent
// bill batch is written. Stub rows keep a NULL watermark so the member sync
// still refreshes them.
func (s *Store) UpsertMembers(ctx context.Context, members []model.Member) error {
	for _, m := range members {
		if _, err := s.pool.Exec(ctx, memberUpsert,
			m.BioguideID, m.FirstName, m.MiddleName, m.LastName, m.FullName,
			m.Party, m.State, m.District, m.ImageURL, m.IsCurrent); err != nil {
			return fmt.Errorf("upsert member %s: %w", m.BioguideID, err)
		}
	}
	return nil
}

// WriteMemberBatch commits one batch of fully fetched members in a single
// transaction, advancing each member's watermark alongside its fields.
func (s *Store) WriteMemberBatch(ctx context.Context, members []model.Member, syncedAt time.Time) error {
	if len(members) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &BatchWriteError{Family: "members", Size: len(members), Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, m := range members {
		if err := writeMember(ctx, tx, m, syncedAt); err != nil {
			return &BatchWriteError{Family: "members", Size: len(members), Err: err}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return &BatchWriteError{Family: "members", Size: len(members), Err: err}
	}
	return nil
}

func writeMember(ctx context.Context, tx pgx.Tx, m model.Member, syncedAt time.Time) error {
	_, err := tx.Exec(ctx, memberBatchUpsert,
		m.BioguideID, m.FirstName, m.MiddleName, m.LastName, m.FullName,
		m.Party, m.State, m.District, m.ImageURL, m.IsCurrent, syncedAt)
	if err != nil {
		return fmt.Errorf("upsert member %s: %w", m.BioguideID, err)
	}
	return nil
}
