package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitoldata/congress-mirror/model"
)

func TestPlanBills(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour

	unknown := model.BillKey{Congress: 119, Type: "hr", Number: 1}
	neverSynced := model.BillKey{Congress: 119, Type: "hr", Number: 2}
	stale := model.BillKey{Congress: 119, Type: "hr", Number: 3}
	fresh := model.BillKey{Congress: 119, Type: "hr", Number: 4}

	staleAt := now.Add(-8 * 24 * time.Hour)
	freshAt := now.Add(-2 * 24 * time.Hour)
	watermarks := map[model.BillKey]*time.Time{
		neverSynced: nil,
		stale:       &staleAt,
		fresh:       &freshAt,
	}
	candidates := []model.BillListItem{
		{Key: unknown},
		{Key: neverSynced},
		{Key: stale},
		{Key: fresh},
	}

	work := PlanBills(candidates, watermarks, window, now)
	require.Len(t, work, 3)
	assert.Equal(t, unknown, work[0].Key)
	assert.Equal(t, neverSynced, work[1].Key)
	assert.Equal(t, stale, work[2].Key)
}

func TestPlanBillsNormalizesCandidateKeys(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	key := model.BillKey{Congress: 119, Type: "hr", Number: 1}
	freshAt := now.Add(-time.Hour)
	watermarks := map[model.BillKey]*time.Time{key: &freshAt}

	candidates := []model.BillListItem{{Key: model.BillKey{Congress: 119, Type: "HR", Number: 1}}}
	work := PlanBills(candidates, watermarks, 7*24*time.Hour, now)
	assert.Empty(t, work)
}

func TestPlanBillsBoundaryIsStale(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	window := 7 * 24 * time.Hour
	key := model.BillKey{Congress: 119, Type: "s", Number: 10}
	exactlyCutoff := now.Add(-window)

	work := PlanBills(
		[]model.BillListItem{{Key: key}},
		map[model.BillKey]*time.Time{key: &exactlyCutoff},
		window, now,
	)
	require.Len(t, work, 1)
}

func TestPlanMembers(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	staleAt := now.Add(-30 * 24 * time.Hour)
	freshAt := now.Add(-time.Hour)
	watermarks := map[string]*time.Time{
		"B000002": &staleAt,
		"C000003": &freshAt,
		"D000004": nil,
	}
	candidates := []model.MemberListItem{
		{BioguideID: "A000001"},
		{BioguideID: "B000002"},
		{BioguideID: "C000003"},
		{BioguideID: "D000004"},
	}

	work := PlanMembers(candidates, watermarks, 7*24*time.Hour, now)
	require.Len(t, work, 3)
	assert.Equal(t, "A000001", work[0].BioguideID)
	assert.Equal(t, "B000002", work[1].BioguideID)
	assert.Equal(t, "D000004", work[2].BioguideID)
}
