package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/capitoldata/congress-mirror/client"
	"github.com/capitoldata/congress-mirror/metrics"
	"github.com/capitoldata/congress-mirror/model"
)

// SyncCommittees runs the committee pipeline: mirror the full committee tree
// with the two-pass hierarchy write, then refresh each committee's reports
// for the configured congress where the freshness check demands it.
func (o *Orchestrator) SyncCommittees(ctx context.Context) (*Summary, error) {
	summary := o.newSummary("committees")
	log.Info().
		Str("run_id", summary.RunID).
		Int("congress", o.opts.Congress).
		Str("state", string(StateEnumerating)).
		Msg("Starting committee sync")

	items, err := o.api.ListCommittees(ctx)
	if err != nil {
		var partial *client.PartialFetchError
		if !errors.As(err, &partial) {
			return o.finish(summary), err
		}
		log.Warn().
			Int("collected", partial.Collected).
			Err(partial.Err).
			Msg("Committee enumeration stopped early, using partial list")
	}
	summary.Discovered = len(items)
	metrics.Discovered.WithLabelValues("committees").Add(float64(len(items)))
	if len(items) == 0 {
		return o.finish(summary), nil
	}

	committees := make([]model.Committee, 0, len(items))
	for _, item := range items {
		c := item.Committee
		if c.Chamber == model.ChamberUnknown {
			c.Chamber = InferChamber(c.SystemCode, c.Name)
		}
		committees = append(committees, c)
	}
	if err := o.store.WriteCommitteeBatch(ctx, committees); err != nil {
		summary.Failed += len(committees)
		metrics.Failed.WithLabelValues("committees").Add(float64(len(committees)))
		return o.finish(summary), err
	}
	summary.Written += len(committees)
	metrics.Written.WithLabelValues("committees").Add(float64(len(committees)))

	for start := 0; start < len(items); {
		end := start + o.opts.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		details, throttled, failed, err := o.fetchCommitteeBatch(ctx, batch)
		if err != nil {
			return o.finish(summary), err
		}
		if throttled {
			if err := o.coolDown(ctx, summary); err != nil {
				return o.finish(summary), err
			}
			continue
		}
		summary.Fetched += len(details)
		summary.Failed += failed
		metrics.Fetched.WithLabelValues("committees").Add(float64(len(details)))

		replay := false
		for _, detail := range details {
			throttledReports, err := o.refreshReports(ctx, detail, summary)
			if err != nil {
				return o.finish(summary), err
			}
			if throttledReports {
				if err := o.coolDown(ctx, summary); err != nil {
					return o.finish(summary), err
				}
				// Replay the whole detail batch after the cooldown; the
				// freshness check skips committees already reconciled.
				replay = true
				break
			}
		}
		if replay {
			continue
		}
		start = end
	}
	return o.finish(summary), nil
}

func (o *Orchestrator) fetchCommitteeBatch(ctx context.Context, batch []model.CommitteeListItem) (details []*model.CommitteeDetail, throttled bool, failed int, err error) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.BatchSize)

	for _, item := range batch {
		item := item
		g.Go(func() error {
			detail, fetchErr := o.api.GetCommitteeDetail(gctx, item.URL)
			if fetchErr != nil {
				var thr *client.ThrottledError
				if errors.As(fetchErr, &thr) {
					return fetchErr
				}
				if gctx.Err() != nil {
					return nil
				}
				log.Warn().
					Str("system_code", item.Committee.SystemCode).
					Err(fetchErr).
					Msg("Committee detail fetch failed, will retry next run")
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			details = append(details, detail)
			mu.Unlock()
			return nil
		})
	}
	if waitErr := g.Wait(); waitErr != nil {
		var thr *client.ThrottledError
		if errors.As(waitErr, &thr) {
			return nil, true, 0, nil
		}
		return nil, false, 0, waitErr
	}
	if ctx.Err() != nil {
		return nil, false, 0, ctx.Err()
	}
	return details, false, failed, nil
}

// refreshReports re-fetches one committee's report sub-collection when the
// completeness heuristic says it is due, then writes the reports and their
// bill links in one transaction.
func (o *Orchestrator) refreshReports(ctx context.Context, detail *model.CommitteeDetail, summary *Summary) (throttled bool, err error) {
	code := detail.Committee.SystemCode
	total, linked, err := o.store.ReportCounts(ctx, code, o.opts.Congress)
	if err != nil {
		return false, err
	}
	if !NeedsReportRefresh(total, linked, detail.ReportCount) {
		log.Debug().Str("system_code", code).Msg("Committee reports already reconciled, skipping")
		summary.SkippedStale++
		metrics.SkippedStale.WithLabelValues("reports").Inc()
		return false, nil
	}

	listing, err := o.api.ListCommitteeReports(ctx, detail.ReportsURL)
	if err != nil {
		var thr *client.ThrottledError
		if errors.As(err, &thr) {
			return true, nil
		}
		var partial *client.PartialFetchError
		if !errors.As(err, &partial) {
			return false, err
		}
		log.Warn().
			Str("system_code", code).
			Int("collected", partial.Collected).
			Err(partial.Err).
			Msg("Report listing stopped early, using partial list")
	}

	var reports []model.CommitteeReport
	for _, item := range listing {
		parts, err := o.api.GetCommitteeReport(ctx, item.URL)
		if err != nil {
			var thr *client.ThrottledError
			if errors.As(err, &thr) {
				return true, nil
			}
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			log.Warn().
				Str("citation", item.Citation).
				Err(err).
				Msg("Report detail fetch failed, will retry next run")
			summary.Failed++
			metrics.Failed.WithLabelValues("reports").Inc()
			continue
		}
		for _, r := range parts {
			if r.CommitteeCode == nil {
				c := code
				r.CommitteeCode = &c
			}
			if r.Congress == o.opts.Congress || o.opts.Congress == 0 {
				reports = append(reports, r)
			}
		}
	}
	summary.Fetched += len(reports)
	metrics.Fetched.WithLabelValues("reports").Add(float64(len(reports)))

	if err := o.store.WriteReportBatch(ctx, reports); err != nil {
		summary.Failed += len(reports)
		metrics.Failed.WithLabelValues("reports").Add(float64(len(reports)))
		log.Error().
			Str("system_code", code).
			Int("batch_size", len(reports)).
			Err(err).
			Msg("Report batch rolled back, continuing with next committee")
		return false, nil
	}
	summary.Written += len(reports)
	metrics.Written.WithLabelValues("reports").Add(float64(len(reports)))
	return false, nil
}
