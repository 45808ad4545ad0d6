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

// SyncMembers runs the member pipeline: enumerate the member collection, plan
// from watermarks, fetch details in bounded batches and write each batch in
// one transaction.
func (o *Orchestrator) SyncMembers(ctx context.Context) (*Summary, error) {
	summary := o.newSummary("members")
	log.Info().
		Str("run_id", summary.RunID).
		Bool("current_only", o.opts.CurrentMembersOnly).
		Str("state", string(StatePlanning)).
		Msg("Starting member sync")

	candidates, err := o.api.ListMembers(ctx, o.opts.CurrentMembersOnly)
	if err != nil {
		var partial *client.PartialFetchError
		if !errors.As(err, &partial) {
			return o.finish(summary), err
		}
		log.Warn().
			Int("collected", partial.Collected).
			Err(partial.Err).
			Msg("Member enumeration stopped early, using partial list")
	}
	summary.Discovered = len(candidates)
	metrics.Discovered.WithLabelValues("members").Add(float64(len(candidates)))

	watermarks, err := o.store.MemberWatermarks(ctx)
	if err != nil {
		return o.finish(summary), err
	}
	work := PlanMembers(candidates, watermarks, o.opts.FreshnessWindow, o.now())
	summary.SkippedStale = len(candidates) - len(work)
	metrics.SkippedStale.WithLabelValues("members").Add(float64(summary.SkippedStale))
	if len(work) == 0 {
		return o.finish(summary), nil
	}

	for start := 0; start < len(work); {
		end := start + o.opts.BatchSize
		if end > len(work) {
			end = len(work)
		}
		batch := work[start:end]

		members, throttled, failed, err := o.fetchMemberBatch(ctx, batch)
		if err != nil {
			return o.finish(summary), err
		}
		if throttled {
			if err := o.coolDown(ctx, summary); err != nil {
				return o.finish(summary), err
			}
			continue
		}
		summary.Fetched += len(members)
		summary.Failed += failed
		metrics.Fetched.WithLabelValues("members").Add(float64(len(members)))

		if err := o.store.WriteMemberBatch(ctx, members, o.now()); err != nil {
			summary.Failed += len(members)
			metrics.Failed.WithLabelValues("members").Add(float64(len(members)))
			log.Error().
				Str("run_id", summary.RunID).
				Int("batch_size", len(members)).
				Err(err).
				Msg("Member batch rolled back, continuing with next batch")
		} else {
			summary.Written += len(members)
			metrics.Written.WithLabelValues("members").Add(float64(len(members)))
		}
		start = end
	}
	return o.finish(summary), nil
}

func (o *Orchestrator) fetchMemberBatch(ctx context.Context, batch []model.MemberListItem) (members []model.Member, throttled bool, failed int, err error) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.BatchSize)

	for _, item := range batch {
		item := item
		g.Go(func() error {
			member, fetchErr := o.api.GetMember(gctx, item.BioguideID)
			if fetchErr != nil {
				var thr *client.ThrottledError
				if errors.As(fetchErr, &thr) {
					return fetchErr
				}
				if gctx.Err() != nil {
					return nil
				}
				log.Warn().
					Str("bioguide_id", item.BioguideID).
					Err(fetchErr).
					Msg("Member detail fetch failed, will retry next run")
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			members = append(members, *member)
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
	return members, false, failed, nil
}
