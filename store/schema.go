package store

import (
	"context"
	"fmt"
)

// schemaStatements is the DDL bundle applied by InitSchema, in dependency
// order. Every statement is idempotent. Cascade deletes from bills exist for
// corrective re-seeding only; the pipeline itself never deletes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS members (
		bioguide_id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		middle_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		party TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		district INTEGER,
		image_url TEXT NOT NULL DEFAULT '',
		is_current BOOLEAN NOT NULL DEFAULT FALSE,
		last_synced_at TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS committees (
		system_code TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		chamber TEXT NOT NULL DEFAULT 'Unknown',
		committee_type TEXT NOT NULL DEFAULT '',
		parent_code TEXT REFERENCES committees(system_code)
	)`,

	`CREATE TABLE IF NOT EXISTS bills (
		id BIGSERIAL PRIMARY KEY,
		congress INTEGER NOT NULL,
		bill_type TEXT NOT NULL,
		bill_number INTEGER NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		origin_chamber TEXT NOT NULL DEFAULT '',
		introduced_date DATE,
		policy_area TEXT NOT NULL DEFAULT '',
		sponsor_bioguide_id TEXT REFERENCES members(bioguide_id),
		constitutional_authority TEXT NOT NULL DEFAULT '',
		latest_action_date DATE,
		latest_action_text TEXT NOT NULL DEFAULT '',
		update_date TEXT NOT NULL DEFAULT '',
		last_synced_at TIMESTAMPTZ,
		UNIQUE (congress, bill_type, bill_number)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_bills_last_synced ON bills(last_synced_at)`,

	`CREATE TABLE IF NOT EXISTS actions (
		id BIGSERIAL PRIMARY KEY,
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		action_date DATE NOT NULL,
		action_text TEXT NOT NULL,
		action_type TEXT NOT NULL DEFAULT '',
		action_code TEXT NOT NULL DEFAULT '',
		source_system TEXT NOT NULL DEFAULT '',
		UNIQUE (bill_id, action_date, action_text)
	)`,

	`CREATE TABLE IF NOT EXISTS action_committees (
		action_id BIGINT NOT NULL REFERENCES actions(id) ON DELETE CASCADE,
		committee_code TEXT NOT NULL REFERENCES committees(system_code),
		PRIMARY KEY (action_id, committee_code)
	)`,

	`CREATE TABLE IF NOT EXISTS cosponsors (
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		bioguide_id TEXT NOT NULL REFERENCES members(bioguide_id),
		sponsorship_date DATE,
		is_original BOOLEAN NOT NULL DEFAULT FALSE,
		is_withdrawn BOOLEAN NOT NULL DEFAULT FALSE,
		withdrawn_date DATE,
		PRIMARY KEY (bill_id, bioguide_id)
	)`,

	`CREATE TABLE IF NOT EXISTS related_bills (
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		related_bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		relationship_type TEXT NOT NULL DEFAULT '',
		identified_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (bill_id, related_bill_id, identified_by)
	)`,

	`CREATE TABLE IF NOT EXISTS summaries (
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		version_code TEXT NOT NULL,
		action_date DATE,
		action_description TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (bill_id, version_code)
	)`,

	`CREATE TABLE IF NOT EXISTS titles (
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		title_type TEXT NOT NULL,
		title_text TEXT NOT NULL,
		PRIMARY KEY (bill_id, title_type, title_text)
	)`,

	`CREATE TABLE IF NOT EXISTS text_versions (
		id BIGSERIAL PRIMARY KEY,
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		version_type TEXT NOT NULL,
		issued_date TEXT NOT NULL DEFAULT '',
		UNIQUE (bill_id, version_type, issued_date)
	)`,

	`CREATE TABLE IF NOT EXISTS text_formats (
		text_version_id BIGINT NOT NULL REFERENCES text_versions(id) ON DELETE CASCADE,
		format_type TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (text_version_id, format_type)
	)`,

	`CREATE TABLE IF NOT EXISTS subjects (
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		PRIMARY KEY (bill_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS cost_estimates (
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		pub_date TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (bill_id, url)
	)`,

	`CREATE TABLE IF NOT EXISTS laws (
		bill_id BIGINT PRIMARY KEY REFERENCES bills(id) ON DELETE CASCADE,
		law_type TEXT NOT NULL DEFAULT '',
		law_number TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS committee_reports (
		id BIGSERIAL PRIMARY KEY,
		citation TEXT NOT NULL UNIQUE,
		congress INTEGER NOT NULL,
		chamber TEXT NOT NULL DEFAULT '',
		report_type TEXT NOT NULL DEFAULT '',
		report_number INTEGER NOT NULL DEFAULT 0,
		part INTEGER NOT NULL DEFAULT 0,
		committee_code TEXT REFERENCES committees(system_code),
		issue_date TIMESTAMPTZ,
		title TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_reports_committee
		ON committee_reports(committee_code, congress)`,

	`CREATE TABLE IF NOT EXISTS report_bills (
		report_id BIGINT NOT NULL REFERENCES committee_reports(id) ON DELETE CASCADE,
		bill_id BIGINT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
		PRIMARY KEY (report_id, bill_id)
	)`,
}

// InitSchema applies the DDL bundle. Safe to run repeatedly.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}
