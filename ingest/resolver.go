package ingest

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/capitoldata/congress-mirror/client"
	"github.com/capitoldata/congress-mirror/model"
)

// Resolver makes every foreign entity a batch references exist in storage
// before the batch write begins. Members missing locally are fetched from the
// upstream detail endpoint; committees missing locally get stub rows with an
// inferred chamber. References that still cannot be resolved are stripped
// from the batch with a warning.
type Resolver struct {
	api   API
	store Storage
}

// NewResolver creates a resolver over the given upstream and storage.
func NewResolver(api API, store Storage) *Resolver {
	return &Resolver{api: api, store: store}
}

// ResolveBillBatch resolves all member and committee references of one bill
// batch. It mutates the records in place, dropping facts whose referent truly
// cannot be resolved. A throttle signal aborts resolution so the orchestrator
// can cool the batch down and replay it.
func (r *Resolver) ResolveBillBatch(ctx context.Context, records []*model.BillRecord) error {
	unresolved, err := r.resolveMembers(ctx, records)
	if err != nil {
		return err
	}
	if len(unresolved) > 0 {
		stripUnresolvedMembers(records, unresolved)
	}
	return r.resolveCommittees(ctx, records)
}

// resolveMembers returns the set of bioguide identifiers that remain
// unresolved after fetch attempts.
func (r *Resolver) resolveMembers(ctx context.Context, records []*model.BillRecord) (map[string]bool, error) {
	var ids []string
	seen := make(map[string]bool)
	for _, record := range records {
		for _, id := range record.ReferencedMembers() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	existing, err := r.store.ExistingMembers(ctx, ids)
	if err != nil {
		return nil, err
	}

	var fetched []model.Member
	unresolved := make(map[string]bool)
	for _, id := range ids {
		if existing[id] {
			continue
		}
		member, err := r.api.GetMember(ctx, id)
		if err != nil {
			var throttled *client.ThrottledError
			if errors.As(err, &throttled) || ctx.Err() != nil {
				return nil, err
			}
			refErr := &MissingReferenceError{Kind: "member", ID: id, Err: err}
			log.Warn().Str("bioguide_id", id).Err(refErr).
				Msg("Could not resolve referenced member, dropping referencing facts")
			unresolved[id] = true
			continue
		}
		fetched = append(fetched, *member)
	}
	if len(fetched) > 0 {
		if err := r.store.UpsertMembers(ctx, fetched); err != nil {
			return nil, err
		}
	}
	return unresolved, nil
}

// stripUnresolvedMembers removes the facts that point at members we could not
// resolve: the sponsor pointer and individual cosponsor rows.
func stripUnresolvedMembers(records []*model.BillRecord, unresolved map[string]bool) {
	for _, record := range records {
		if record.Bill.SponsorBioguideID != nil && unresolved[*record.Bill.SponsorBioguideID] {
			record.Bill.SponsorBioguideID = nil
		}
		kept := record.Cosponsors[:0]
		for _, c := range record.Cosponsors {
			if !unresolved[c.BioguideID] {
				kept = append(kept, c)
			}
		}
		record.Cosponsors = kept
	}
}

// resolveCommittees stubs committees referenced by action facts. There is no
// chamber-free committee detail endpoint to fetch from, so the stub carries
// the inferred chamber and the committee sync later fills in the rest.
func (r *Resolver) resolveCommittees(ctx context.Context, records []*model.BillRecord) error {
	var codes []string
	seen := make(map[string]bool)
	for _, record := range records {
		for _, code := range record.ReferencedCommittees() {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	if len(codes) == 0 {
		return nil
	}

	existing, err := r.store.ExistingCommittees(ctx, codes)
	if err != nil {
		return err
	}
	var stubs []model.Committee
	for _, code := range codes {
		if existing[code] {
			continue
		}
		stubs = append(stubs, model.Committee{
			SystemCode: code,
			Chamber:    InferChamber(code, ""),
		})
	}
	if len(stubs) == 0 {
		return nil
	}
	log.Debug().Int("count", len(stubs)).Msg("Inserting committee stubs for action references")
	return r.store.UpsertCommitteeStubs(ctx, stubs)
}
