package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/capitoldata/congress-mirror/model"
)

// WriteBillBatch commits one batch of fully hydrated bills in a single
// transaction. Each bill's row is upserted first so every nested sub-resource
// can reference its surrogate id, and last_synced_at advances to syncedAt in
// the same transaction. Any failure rolls the whole batch back.
func (s *Store) WriteBillBatch(ctx context.Context, records []*model.BillRecord, syncedAt time.Time) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &BatchWriteError{Family: "bills", Size: len(records), Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, record := range records {
		if err := writeBillRecord(ctx, tx, record, syncedAt); err != nil {
			return &BatchWriteError{Family: "bills", Size: len(records), Err: err}
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return &BatchWriteError{Family: "bills", Size: len(records), Err: err}
	}
	return nil
}

func writeBillRecord(ctx context.Context, tx pgx.Tx, record *model.BillRecord, syncedAt time.Time) error {
	billID, err := upsertBill(ctx, tx, &record.Bill, syncedAt)
	if err != nil {
		return err
	}
	if err := writeActions(ctx, tx, billID, record.Actions); err != nil {
		return err
	}
	if err := writeCosponsors(ctx, tx, billID, record.Cosponsors); err != nil {
		return err
	}
	if err := writeRelatedBills(ctx, tx, billID, record.RelatedBills); err != nil {
		return err
	}
	if err := writeSummaries(ctx, tx, billID, record.Summaries); err != nil {
		return err
	}
	if err := writeTitles(ctx, tx, billID, record.Titles); err != nil {
		return err
	}
	if err := writeTextVersions(ctx, tx, billID, record.TextVersions); err != nil {
		return err
	}
	if err := writeSubjects(ctx, tx, billID, record.Subjects); err != nil {
		return err
	}
	if err := writeCostEstimates(ctx, tx, billID, record.CostEstimates); err != nil {
		return err
	}
	if record.Law != nil {
		if err := writeLaw(ctx, tx, billID, record.Law); err != nil {
			return err
		}
	}
	return nil
}

// upsertBill writes the top-level bill row. Fields the payload omits keep
// their stored value via COALESCE against NULLed parameters; the watermark is
// always advanced because reaching this point means a fresh full record.
func upsertBill(ctx context.Context, tx pgx.Tx, bill *model.Bill, syncedAt time.Time) (int64, error) {
	key := bill.Key.Normalize()
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO bills (
			congress, bill_type, bill_number, title, origin_chamber,
			introduced_date, policy_area, sponsor_bioguide_id,
			constitutional_authority, latest_action_date, latest_action_text,
			update_date, last_synced_at
		) VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10::date, $11, $12, $13)
		ON CONFLICT (congress, bill_type, bill_number) DO UPDATE SET
			title = COALESCE(NULLIF(excluded.title, ''), bills.title),
			origin_chamber = COALESCE(NULLIF(excluded.origin_chamber, ''), bills.origin_chamber),
			introduced_date = COALESCE(excluded.introduced_date, bills.introduced_date),
			policy_area = COALESCE(NULLIF(excluded.policy_area, ''), bills.policy_area),
			sponsor_bioguide_id = COALESCE(excluded.sponsor_bioguide_id, bills.sponsor_bioguide_id),
			constitutional_authority = COALESCE(NULLIF(excluded.constitutional_authority, ''), bills.constitutional_authority),
			latest_action_date = COALESCE(excluded.latest_action_date, bills.latest_action_date),
			latest_action_text = COALESCE(NULLIF(excluded.latest_action_text, ''), bills.latest_action_text),
			update_date = COALESCE(NULLIF(excluded.update_date, ''), bills.update_date),
			last_synced_at = excluded.last_synced_at
		RETURNING id`,
		key.Congress, key.Type, key.Number, bill.Title, bill.OriginChamber,
		nullString(bill.IntroducedDate), bill.PolicyArea, bill.SponsorBioguideID,
		bill.ConstitutionalAuthority, nullString(bill.LatestActionDate),
		bill.LatestActionText, bill.UpdateDate, syncedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert bill %s: %w", key, err)
	}
	bill.ID = id
	return id, nil
}

func writeActions(ctx context.Context, tx pgx.Tx, billID int64, actions []model.Action) error {
	for _, action := range actions {
		if action.ActionDate == "" || action.Text == "" {
			log.Warn().Int64("bill_id", billID).Msg("Skipping action without date or text")
			continue
		}
		// Type is the one refreshable field; the rest of the fact is
		// immutable once recorded.
		var actionID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO actions (bill_id, action_date, action_text, action_type, action_code, source_system)
			VALUES ($1, $2::date, $3, $4, $5, $6)
			ON CONFLICT (bill_id, action_date, action_text)
				DO UPDATE SET action_type = excluded.action_type
			RETURNING id`,
			billID, action.ActionDate, action.Text, action.Type, action.ActionCode, action.SourceSystem,
		).Scan(&actionID)
		if err != nil {
			return fmt.Errorf("upsert action: %w", err)
		}
		for _, code := range action.CommitteeCodes {
			_, err := tx.Exec(ctx, `
				INSERT INTO action_committees (action_id, committee_code)
				VALUES ($1, $2)
				ON CONFLICT (action_id, committee_code) DO NOTHING`,
				actionID, code)
			if err != nil {
				return fmt.Errorf("link action to committee %s: %w", code, err)
			}
		}
	}
	return nil
}

func writeCosponsors(ctx context.Context, tx pgx.Tx, billID int64, cosponsors []model.Cosponsor) error {
	for _, c := range cosponsors {
		_, err := tx.Exec(ctx, `
			INSERT INTO cosponsors (bill_id, bioguide_id, sponsorship_date, is_original, is_withdrawn, withdrawn_date)
			VALUES ($1, $2, $3::date, $4, $5, $6::date)
			ON CONFLICT (bill_id, bioguide_id) DO UPDATE SET
				is_withdrawn = excluded.is_withdrawn,
				withdrawn_date = excluded.withdrawn_date`,
			billID, c.BioguideID, nullString(c.SponsorshipDate), c.IsOriginal, c.IsWithdrawn, nullString(c.WithdrawnDate))
		if err != nil {
			return fmt.Errorf("upsert cosponsor %s: %w", c.BioguideID, err)
		}
	}
	return nil
}

func writeRelatedBills(ctx context.Context, tx pgx.Tx, billID int64, related []model.RelatedBill) error {
	for _, r := range related {
		relatedID, err := ensureBill(ctx, tx, r.Key, r.Title)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO related_bills (bill_id, related_bill_id, relationship_type, identified_by)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (bill_id, related_bill_id, identified_by)
				DO UPDATE SET relationship_type = excluded.relationship_type`,
			billID, relatedID, r.RelationshipType, r.IdentifiedBy)
		if err != nil {
			return fmt.Errorf("upsert related bill %s: %w", r.Key, err)
		}
	}
	return nil
}

func writeSummaries(ctx context.Context, tx pgx.Tx, billID int64, summaries []model.Summary) error {
	for _, s := range summaries {
		_, err := tx.Exec(ctx, `
			INSERT INTO summaries (bill_id, version_code, action_date, action_description, text)
			VALUES ($1, $2, $3::date, $4, $5)
			ON CONFLICT (bill_id, version_code) DO UPDATE SET
				action_date = COALESCE(excluded.action_date, summaries.action_date),
				action_description = excluded.action_description,
				text = excluded.text`,
			billID, s.VersionCode, nullString(s.ActionDate), s.ActionDescription, s.Text)
		if err != nil {
			return fmt.Errorf("upsert summary %s: %w", s.VersionCode, err)
		}
	}
	return nil
}

func writeTitles(ctx context.Context, tx pgx.Tx, billID int64, titles []model.Title) error {
	for _, t := range titles {
		_, err := tx.Exec(ctx, `
			INSERT INTO titles (bill_id, title_type, title_text)
			VALUES ($1, $2, $3)
			ON CONFLICT (bill_id, title_type, title_text) DO NOTHING`,
			billID, t.TitleType, t.Text)
		if err != nil {
			return fmt.Errorf("insert title: %w", err)
		}
	}
	return nil
}

func writeTextVersions(ctx context.Context, tx pgx.Tx, billID int64, versions []model.TextVersion) error {
	for _, v := range versions {
		var versionID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO text_versions (bill_id, version_type, issued_date)
			VALUES ($1, $2, $3)
			ON CONFLICT (bill_id, version_type, issued_date)
				DO UPDATE SET bill_id = excluded.bill_id
			RETURNING id`,
			billID, v.Type, v.Date).Scan(&versionID)
		if err != nil {
			return fmt.Errorf("upsert text version %s: %w", v.Type, err)
		}
		for _, f := range v.Formats {
			_, err := tx.Exec(ctx, `
				INSERT INTO text_formats (text_version_id, format_type, url)
				VALUES ($1, $2, $3)
				ON CONFLICT (text_version_id, format_type)
					DO UPDATE SET url = excluded.url`,
				versionID, f.Type, f.URL)
			if err != nil {
				return fmt.Errorf("upsert text format %s: %w", f.Type, err)
			}
		}
	}
	return nil
}

func writeSubjects(ctx context.Context, tx pgx.Tx, billID int64, subjects []string) error {
	for _, name := range subjects {
		_, err := tx.Exec(ctx, `
			INSERT INTO subjects (bill_id, name)
			VALUES ($1, $2)
			ON CONFLICT (bill_id, name) DO NOTHING`,
			billID, name)
		if err != nil {
			return fmt.Errorf("insert subject %q: %w", name, err)
		}
	}
	return nil
}

func writeCostEstimates(ctx context.Context, tx pgx.Tx, billID int64, estimates []model.CostEstimate) error {
	for _, e := range estimates {
		if e.URL == "" {
			continue
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO cost_estimates (bill_id, url, title, description, pub_date)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (bill_id, url) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				pub_date = excluded.pub_date`,
			billID, e.URL, e.Title, e.Description, e.PubDate)
		if err != nil {
			return fmt.Errorf("upsert cost estimate: %w", err)
		}
	}
	return nil
}

func writeLaw(ctx context.Context, tx pgx.Tx, billID int64, law *model.Law) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO laws (bill_id, law_type, law_number)
		VALUES ($1, $2, $3)
		ON CONFLICT (bill_id) DO UPDATE SET
			law_type = excluded.law_type,
			law_number = excluded.law_number`,
		billID, law.Type, law.Number)
	if err != nil {
		return fmt.Errorf("upsert law: %w", err)
	}
	return nil
}
