package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/capitoldata/congress-mirror/metrics"
)

// State names one phase of a family sync run.
type State string

const (
	StatePlanning    State = "planning"
	StateEnumerating State = "enumerating"
	StateFetching    State = "fetching"
	StateResolving   State = "resolving"
	StateWriting     State = "writing"
	StateCoolingDown State = "cooling-down"
	StateAdvancing   State = "advancing"
	StateDone        State = "done"
)

// Summary is the operator-visible outcome of one run.
type Summary struct {
	RunID        string
	Family       string
	Discovered   int
	SkippedStale int
	Fetched      int
	Written      int
	Failed       int
	Cooldowns    int
	Started      time.Time
	Elapsed      time.Duration
}

// Options tunes a sync run. Zero values are filled by the orchestrator
// constructor.
type Options struct {
	Congress           int
	BillTypes          []string
	BatchSize          int
	FreshnessWindow    time.Duration
	CooldownPeriod     time.Duration
	CurrentMembersOnly bool
}

// defaultBillTypes is every bill type the upstream serves.
var defaultBillTypes = []string{"hr", "s", "hjres", "sjres", "hconres", "sconres", "hres", "sres"}

// Orchestrator drives one entity family per call through the sync state
// machine. A single orchestrating goroutine owns the run; only the detail
// fetch step fans out.
type Orchestrator struct {
	api   API
	store Storage
	res   *Resolver
	opts  Options

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator over the given upstream and storage.
func New(api API, store Storage, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = 7 * 24 * time.Hour
	}
	if opts.CooldownPeriod <= 0 {
		opts.CooldownPeriod = time.Hour
	}
	if len(opts.BillTypes) == 0 {
		opts.BillTypes = defaultBillTypes
	}
	return &Orchestrator{
		api:   api,
		store: store,
		res:   NewResolver(api, store),
		opts:  opts,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// newSummary starts the bookkeeping for one run.
func (o *Orchestrator) newSummary(family string) *Summary {
	return &Summary{
		RunID:   uuid.NewString(),
		Family:  family,
		Started: o.now(),
	}
}

// finish closes out a run's summary and logs it.
func (o *Orchestrator) finish(summary *Summary) *Summary {
	summary.Elapsed = o.now().Sub(summary.Started)
	log.Info().
		Str("run_id", summary.RunID).
		Str("family", summary.Family).
		Str("state", string(StateDone)).
		Int("discovered", summary.Discovered).
		Int("skipped_stale", summary.SkippedStale).
		Int("fetched", summary.Fetched).
		Int("written", summary.Written).
		Int("failed", summary.Failed).
		Int("cooldowns", summary.Cooldowns).
		Dur("elapsed", summary.Elapsed).
		Msg("Sync run finished")
	return summary
}

// coolDown pauses the run after a batch-wide throttle signal. The caller
// replays the same batch afterwards; the cursor never advances past a
// throttled batch.
func (o *Orchestrator) coolDown(ctx context.Context, summary *Summary) error {
	summary.Cooldowns++
	metrics.Cooldowns.WithLabelValues(summary.Family).Inc()
	log.Warn().
		Str("run_id", summary.RunID).
		Str("family", summary.Family).
		Str("state", string(StateCoolingDown)).
		Dur("cooldown", o.opts.CooldownPeriod).
		Msg("Batch throttled, cooling down before replay")
	return o.sleep(ctx, o.opts.CooldownPeriod)
}
