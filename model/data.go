// Package model defines the entities mirrored from the Congress API and the
// decode contracts for each upstream endpoint.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Chamber identifies which chamber a committee belongs to. Unknown is a valid
// stored value for committees whose chamber has not been resolved yet.
type Chamber string

const (
	ChamberUnknown Chamber = "Unknown"
	ChamberHouse   Chamber = "House"
	ChamberSenate  Chamber = "Senate"
	ChamberJoint   Chamber = "Joint"
)

// BillKey is the natural key of a bill: congress number, lowercased bill type
// (hr, s, hjres, ...) and bill number.
type BillKey struct {
	Congress int
	Type     string
	Number   int
}

func (k BillKey) String() string {
	return fmt.Sprintf("%d/%s/%d", k.Congress, k.Type, k.Number)
}

// Normalize lowercases the bill type so keys compare consistently regardless
// of how the upstream payload cased it.
func (k BillKey) Normalize() BillKey {
	k.Type = strings.ToLower(k.Type)
	return k
}

// Member is a congressional member row keyed by bioguide identifier.
type Member struct {
	BioguideID string
	FirstName  string
	MiddleName string
	LastName   string
	FullName   string
	Party      string
	State      string
	District   *int
	ImageURL   string
	IsCurrent  bool
}

// Committee is a committee row keyed by its system code. ParentCode is the
// self-referential link wired by the second hierarchy pass.
type Committee struct {
	SystemCode    string
	Name          string
	Chamber       Chamber
	CommitteeType string
	ParentCode    *string
	// ReportCount is the upstream-reported number of committee reports. It is
	// not persisted; the report freshness check consumes it.
	ReportCount int
}

// Bill is a top-level bill row. ID is the surrogate key generated on first
// insert; LastSyncedAt is the staleness watermark.
type Bill struct {
	ID                      int64
	Key                     BillKey
	Title                   string
	OriginChamber           string
	IntroducedDate          string
	PolicyArea              string
	SponsorBioguideID       *string
	ConstitutionalAuthority string
	LatestActionDate        string
	LatestActionText        string
	UpdateDate              string
	LastSyncedAt            *time.Time
}

// CommitteeReport is keyed by its citation string (e.g. "H. Rept. 119-12").
type CommitteeReport struct {
	ID            int64
	Citation      string
	Congress      int
	Chamber       string
	ReportType    string
	ReportNumber  int
	Part          int
	CommitteeCode *string
	IssueDate     string
	Title         string
	// AssociatedBills lists bills the report covers; stubs are created for
	// bills not yet mirrored.
	AssociatedBills []BillKey
}

// Action is a legislative action on a bill, deduplicated by
// (bill, action date, text). Type is refreshable on re-ingestion.
type Action struct {
	ActionDate     string
	Text           string
	Type           string
	ActionCode     string
	SourceSystem   string
	CommitteeCodes []string
}

// Cosponsor links a bill to a member with sponsorship metadata.
type Cosponsor struct {
	BioguideID      string
	SponsorshipDate string
	IsOriginal      bool
	IsWithdrawn     bool
	WithdrawnDate   string
}

// RelatedBill records a typed relationship to another bill, which may only
// exist as a stub with identifying fields.
type RelatedBill struct {
	Key              BillKey
	Title            string
	RelationshipType string
	IdentifiedBy     string
}

// Summary is a CRS summary version for a bill.
type Summary struct {
	VersionCode       string
	ActionDate        string
	ActionDescription string
	Text              string
}

// Title is one of a bill's display or statutory titles.
type Title struct {
	TitleType string
	Text      string
}

// TextVersion is a published text of a bill with its download formats.
type TextVersion struct {
	Type    string
	Date    string
	Formats []TextFormat
}

// TextFormat is a single downloadable rendering of a text version.
type TextFormat struct {
	Type string
	URL  string
}

// CostEstimate is a CBO cost estimate attached to a bill.
type CostEstimate struct {
	Title       string
	URL         string
	Description string
	PubDate     string
}

// Law marks a bill as enacted. At most one row per bill.
type Law struct {
	Type   string
	Number string
}

// BillRecord is one fully hydrated bill: the top-level row plus every nested
// sub-resource, ready for a single transactional write.
type BillRecord struct {
	Bill          Bill
	Actions       []Action
	Cosponsors    []Cosponsor
	RelatedBills  []RelatedBill
	Summaries     []Summary
	Titles        []Title
	TextVersions  []TextVersion
	Subjects      []string
	CostEstimates []CostEstimate
	Law           *Law
}

// ReferencedMembers returns the distinct bioguide identifiers this record
// points at: the sponsor plus every cosponsor.
func (r *BillRecord) ReferencedMembers() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if r.Bill.SponsorBioguideID != nil {
		add(*r.Bill.SponsorBioguideID)
	}
	for _, c := range r.Cosponsors {
		add(c.BioguideID)
	}
	return ids
}

// ReferencedCommittees returns the distinct committee system codes referenced
// by this record's actions.
func (r *BillRecord) ReferencedCommittees() []string {
	seen := make(map[string]bool)
	var codes []string
	for _, a := range r.Actions {
		for _, code := range a.CommitteeCodes {
			if code != "" && !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	return codes
}
