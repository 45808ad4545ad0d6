package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/capitoldata/congress-mirror/model"
)

// WriteCommitteeBatch commits one batch of committees in a single transaction
// using two passes. Pass 1 upserts every node with its parent pointer unset,
// so a child arriving before its parent in the same page cannot fail the
// self-referential constraint. Pass 2 re-walks the batch and wires the parent
// links, skipping parents that are not mirrored at all. The chamber column
// only refines: a stored known chamber survives an incoming Unknown.
func (s *Store) WriteCommitteeBatch(ctx context.Context, committees []model.Committee) error {
	if len(committees) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &BatchWriteError{Family: "committees", Size: len(committees), Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range committees {
		_, err := tx.Exec(ctx, `
			INSERT INTO committees (system_code, name, chamber, committee_type)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (system_code) DO UPDATE SET
				name = COALESCE(NULLIF(excluded.name, ''), committees.name),
				chamber = CASE
					WHEN excluded.chamber = 'Unknown' THEN committees.chamber
					ELSE excluded.chamber
				END,
				committee_type = COALESCE(NULLIF(excluded.committee_type, ''), committees.committee_type)`,
			c.SystemCode, c.Name, string(c.Chamber), c.CommitteeType)
		if err != nil {
			return &BatchWriteError{Family: "committees", Size: len(committees),
				Err: fmt.Errorf("upsert committee %s: %w", c.SystemCode, err)}
		}
	}

	for _, c := range committees {
		if c.ParentCode == nil {
			continue
		}
		// A declared parent can be missing entirely when the enumeration was
		// partial. Leave the link unset rather than fail the batch; the next
		// full listing heals it.
		tag, err := tx.Exec(ctx, `
			UPDATE committees SET parent_code = $1
			WHERE system_code = $2
			  AND EXISTS (SELECT 1 FROM committees p WHERE p.system_code = $1)`,
			*c.ParentCode, c.SystemCode)
		if err != nil {
			return &BatchWriteError{Family: "committees", Size: len(committees),
				Err: fmt.Errorf("link committee %s to parent %s: %w", c.SystemCode, *c.ParentCode, err)}
		}
		if tag.RowsAffected() == 0 {
			log.Warn().
				Str("system_code", c.SystemCode).
				Str("parent_code", *c.ParentCode).
				Msg("Declared parent not mirrored yet, leaving link unset")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &BatchWriteError{Family: "committees", Size: len(committees), Err: err}
	}
	return nil
}

// UpsertCommitteeStubs inserts placeholder committee rows so referencing
// facts (action links) can satisfy their foreign keys. Stored fields of
// already-known committees are untouched.
func (s *Store) UpsertCommitteeStubs(ctx context.Context, committees []model.Committee) error {
	for _, c := range committees {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO committees (system_code, name, chamber)
			VALUES ($1, $2, $3)
			ON CONFLICT (system_code) DO NOTHING`,
			c.SystemCode, c.Name, string(c.Chamber))
		if err != nil {
			return fmt.Errorf("insert committee stub %s: %w", c.SystemCode, err)
		}
	}
	return nil
}

// WriteReportBatch commits one committee's fetched reports in a single
// transaction: the report rows, stub bills for any not-yet-mirrored
// associated bill, and the report-bill links.
func (s *Store) WriteReportBatch(ctx context.Context, reports []model.CommitteeReport) error {
	if len(reports) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &BatchWriteError{Family: "reports", Size: len(reports), Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, r := range reports {
		var reportID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO committee_reports (
				citation, congress, chamber, report_type, report_number,
				part, committee_code, issue_date, title
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::timestamptz, $9)
			ON CONFLICT (citation) DO UPDATE SET
				committee_code = COALESCE(excluded.committee_code, committee_reports.committee_code),
				issue_date = COALESCE(excluded.issue_date, committee_reports.issue_date),
				title = COALESCE(NULLIF(excluded.title, ''), committee_reports.title)
			RETURNING id`,
			r.Citation, r.Congress, r.Chamber, r.ReportType, r.ReportNumber,
			r.Part, r.CommitteeCode, nullString(r.IssueDate), r.Title,
		).Scan(&reportID)
		if err != nil {
			return &BatchWriteError{Family: "reports", Size: len(reports),
				Err: fmt.Errorf("upsert report %s: %w", r.Citation, err)}
		}
		for _, key := range r.AssociatedBills {
			billID, err := ensureBill(ctx, tx, key, "")
			if err != nil {
				return &BatchWriteError{Family: "reports", Size: len(reports), Err: err}
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO report_bills (report_id, bill_id)
				VALUES ($1, $2)
				ON CONFLICT (report_id, bill_id) DO NOTHING`,
				reportID, billID)
			if err != nil {
				return &BatchWriteError{Family: "reports", Size: len(reports),
					Err: fmt.Errorf("link report %s to bill %s: %w", r.Citation, key, err)}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return &BatchWriteError{Family: "reports", Size: len(reports), Err: err}
	}
	return nil
}
