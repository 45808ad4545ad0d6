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

// SyncBills runs the full bill pipeline for the configured congress:
// enumerate candidates, plan from watermarks, then fetch, resolve and write
// batch by batch.
func (o *Orchestrator) SyncBills(ctx context.Context) (*Summary, error) {
	summary := o.newSummary("bills")
	log.Info().
		Str("run_id", summary.RunID).
		Int("congress", o.opts.Congress).
		Str("state", string(StatePlanning)).
		Msg("Starting bill sync")

	candidates, err := o.enumerateBills(ctx)
	if err != nil {
		return o.finish(summary), err
	}
	summary.Discovered = len(candidates)
	metrics.Discovered.WithLabelValues("bills").Add(float64(len(candidates)))

	watermarks, err := o.store.BillWatermarks(ctx, o.opts.Congress)
	if err != nil {
		return o.finish(summary), err
	}
	work := PlanBills(candidates, watermarks, o.opts.FreshnessWindow, o.now())
	summary.SkippedStale = len(candidates) - len(work)
	metrics.SkippedStale.WithLabelValues("bills").Add(float64(summary.SkippedStale))
	if len(work) == 0 {
		return o.finish(summary), nil
	}
	log.Info().
		Str("run_id", summary.RunID).
		Int("planned", len(work)).
		Int("skipped_stale", summary.SkippedStale).
		Msg("Bill work list planned")

	for start := 0; start < len(work); {
		end := start + o.opts.BatchSize
		if end > len(work) {
			end = len(work)
		}
		batch := work[start:end]
		log.Debug().
			Str("run_id", summary.RunID).
			Str("state", string(StateFetching)).
			Int("batch_size", len(batch)).
			Msg("Fetching bill batch")

		records, throttled, failed, err := o.fetchBillBatch(ctx, batch)
		if err != nil {
			return o.finish(summary), err
		}
		if throttled {
			if err := o.coolDown(ctx, summary); err != nil {
				return o.finish(summary), err
			}
			continue // replay the same batch
		}
		summary.Fetched += len(records)
		summary.Failed += failed
		metrics.Fetched.WithLabelValues("bills").Add(float64(len(records)))

		log.Debug().
			Str("run_id", summary.RunID).
			Str("state", string(StateResolving)).
			Msg("Resolving batch references")
		if err := o.res.ResolveBillBatch(ctx, records); err != nil {
			var thr *client.ThrottledError
			if errors.As(err, &thr) {
				if err := o.coolDown(ctx, summary); err != nil {
					return o.finish(summary), err
				}
				continue
			}
			return o.finish(summary), err
		}

		log.Debug().
			Str("run_id", summary.RunID).
			Str("state", string(StateWriting)).
			Msg("Writing bill batch")
		if err := o.store.WriteBillBatch(ctx, records, o.now()); err != nil {
			summary.Failed += len(records)
			metrics.Failed.WithLabelValues("bills").Add(float64(len(records)))
			log.Error().
				Str("run_id", summary.RunID).
				Int("batch_size", len(records)).
				Err(err).
				Msg("Bill batch rolled back, continuing with next batch")
		} else {
			summary.Written += len(records)
			metrics.Written.WithLabelValues("bills").Add(float64(len(records)))
		}
		log.Debug().
			Str("run_id", summary.RunID).
			Str("state", string(StateAdvancing)).
			Int("completed", end).
			Int("planned", len(work)).
			Msg("Batch done, advancing cursor")
		start = end
	}
	return o.finish(summary), nil
}

// enumerateBills walks the bill collection for every configured bill type.
// A partial walk contributes what it gathered; the gap heals next run.
func (o *Orchestrator) enumerateBills(ctx context.Context) ([]model.BillListItem, error) {
	var candidates []model.BillListItem
	for _, billType := range o.opts.BillTypes {
		items, err := o.api.ListBills(ctx, o.opts.Congress, billType)
		if err != nil {
			var partial *client.PartialFetchError
			if errors.As(err, &partial) {
				log.Warn().
					Str("bill_type", billType).
					Int("collected", partial.Collected).
					Err(partial.Err).
					Msg("Bill enumeration stopped early, using partial list")
				candidates = append(candidates, items...)
				continue
			}
			return nil, err
		}
		candidates = append(candidates, items...)
	}
	return candidates, nil
}

// fetchBillBatch fans the batch's detail fetches out with bounded
// concurrency. A throttle signal from any fetch marks the whole batch for
// replay; other per-record failures are absorbed and counted.
func (o *Orchestrator) fetchBillBatch(ctx context.Context, batch []BillWork) (records []*model.BillRecord, throttled bool, failed int, err error) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.BatchSize)

	for _, work := range batch {
		work := work
		g.Go(func() error {
			record, fetchErr := o.api.FetchBill(gctx, work.Key)
			if fetchErr != nil {
				var thr *client.ThrottledError
				if errors.As(fetchErr, &thr) {
					return fetchErr // cancels the rest of the fan-out
				}
				if gctx.Err() != nil {
					return nil
				}
				log.Warn().
					Str("bill", work.Key.String()).
					Err(fetchErr).
					Msg("Bill detail fetch failed, will retry next run")
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			records = append(records, record)
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
	return records, false, failed, nil
}
