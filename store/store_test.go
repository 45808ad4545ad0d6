package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaStatementsAreIdempotent(t *testing.T) {
	require.NotEmpty(t, schemaStatements)
	for i, stmt := range schemaStatements {
		trimmed := strings.TrimSpace(stmt)
		require.NotEmpty(t, trimmed, "statement %d", i)
		assert.Contains(t, trimmed, "IF NOT EXISTS", "statement %d must be re-runnable", i)
	}
}

func TestSchemaCoversEveryEntity(t *testing.T) {
	all := strings.Join(schemaStatements, "\n")
	for _, table := range []string{
		"members", "committees", "bills",
		"actions", "action_committees", "cosponsors", "related_bills",
		"summaries", "titles", "text_versions", "text_formats",
		"subjects", "cost_estimates", "laws",
		"committee_reports", "report_bills",
	} {
		assert.Contains(t, all, "TABLE IF NOT EXISTS "+table, "missing table %s", table)
	}
}

func TestBatchWriteErrorUnwraps(t *testing.T) {
	cause := errors.New("deadlock detected")
	err := &BatchWriteError{Family: "bills", Size: 20, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bills batch of 20")
}

func TestMemberBatchUpsertAdvancesWatermarkOnInsert(t *testing.T) {
	// a first-time insert must set the watermark, not just the update branch
	insertCols := memberBatchUpsert[:strings.Index(memberBatchUpsert, "VALUES")]
	assert.Contains(t, insertCols, "last_synced_at")
	assert.Contains(t, memberBatchUpsert, "last_synced_at = excluded.last_synced_at")
	// the resolver's stub path leaves the watermark NULL so the member sync
	// still picks the row up
	assert.NotContains(t, memberUpsert, "last_synced_at")
}

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString(""))
	require.NotNil(t, nullString("x"))
	assert.Equal(t, "x", *nullString("x"))
}
