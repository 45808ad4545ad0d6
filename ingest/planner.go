// Package ingest drives the incremental synchronization of each entity
// family: planning from watermarks, bounded-concurrency detail fetching,
// reference resolution and transactional batch writes.
package ingest

import (
	"time"

	"github.com/capitoldata/congress-mirror/model"
)

// BillWork is one planned unit of bill work.
type BillWork struct {
	Key model.BillKey
}

// PlanBills filters the upstream candidate list down to bills due for a
// refresh: unknown locally, known but never synced (nil watermark), or last
// synced before now minus the freshness window.
func PlanBills(candidates []model.BillListItem, watermarks map[model.BillKey]*time.Time, window time.Duration, now time.Time) []BillWork {
	cutoff := now.Add(-window)
	var work []BillWork
	for _, c := range candidates {
		key := c.Key.Normalize()
		syncedAt, known := watermarks[key]
		if known && syncedAt != nil && syncedAt.After(cutoff) {
			continue
		}
		work = append(work, BillWork{Key: key})
	}
	return work
}

// PlanMembers filters the upstream member list the same way, keyed by
// bioguide identifier.
func PlanMembers(candidates []model.MemberListItem, watermarks map[string]*time.Time, window time.Duration, now time.Time) []model.MemberListItem {
	cutoff := now.Add(-window)
	var work []model.MemberListItem
	for _, c := range candidates {
		syncedAt, known := watermarks[c.BioguideID]
		if known && syncedAt != nil && syncedAt.After(cutoff) {
			continue
		}
		work = append(work, c)
	}
	return work
}
