package ingest

import (
	"context"
	"time"

	"github.com/capitoldata/congress-mirror/model"
)

// fakeAPI substitutes the upstream client. Unset hooks return zero values.
type fakeAPI struct {
	listBills            func(ctx context.Context, congress int, billType string) ([]model.BillListItem, error)
	fetchBill            func(ctx context.Context, key model.BillKey) (*model.BillRecord, error)
	getMember            func(ctx context.Context, bioguideID string) (*model.Member, error)
	listMembers          func(ctx context.Context, currentOnly bool) ([]model.MemberListItem, error)
	listCommittees       func(ctx context.Context) ([]model.CommitteeListItem, error)
	getCommitteeDetail   func(ctx context.Context, detailURL string) (*model.CommitteeDetail, error)
	listCommitteeReports func(ctx context.Context, reportsURL string) ([]model.ReportListItem, error)
	getCommitteeReport   func(ctx context.Context, reportURL string) ([]model.CommitteeReport, error)
}

func (f *fakeAPI) ListBills(ctx context.Context, congress int, billType string) ([]model.BillListItem, error) {
	if f.listBills == nil {
		return nil, nil
	}
	return f.listBills(ctx, congress, billType)
}

func (f *fakeAPI) FetchBill(ctx context.Context, key model.BillKey) (*model.BillRecord, error) {
	if f.fetchBill == nil {
		return &model.BillRecord{Bill: model.Bill{Key: key}}, nil
	}
	return f.fetchBill(ctx, key)
}

func (f *fakeAPI) GetMember(ctx context.Context, bioguideID string) (*model.Member, error) {
	if f.getMember == nil {
		return &model.Member{BioguideID: bioguideID}, nil
	}
	return f.getMember(ctx, bioguideID)
}

func (f *fakeAPI) ListMembers(ctx context.Context, currentOnly bool) ([]model.MemberListItem, error) {
	if f.listMembers == nil {
		return nil, nil
	}
	return f.listMembers(ctx, currentOnly)
}

func (f *fakeAPI) ListCommittees(ctx context.Context) ([]model.CommitteeListItem, error) {
	if f.listCommittees == nil {
		return nil, nil
	}
	return f.listCommittees(ctx)
}

func (f *fakeAPI) GetCommitteeDetail(ctx context.Context, detailURL string) (*model.CommitteeDetail, error) {
	if f.getCommitteeDetail == nil {
		return &model.CommitteeDetail{}, nil
	}
	return f.getCommitteeDetail(ctx, detailURL)
}

func (f *fakeAPI) ListCommitteeReports(ctx context.Context, reportsURL string) ([]model.ReportListItem, error) {
	if f.listCommitteeReports == nil {
		return nil, nil
	}
	return f.listCommitteeReports(ctx, reportsURL)
}

func (f *fakeAPI) GetCommitteeReport(ctx context.Context, reportURL string) ([]model.CommitteeReport, error) {
	if f.getCommitteeReport == nil {
		return nil, nil
	}
	return f.getCommitteeReport(ctx, reportURL)
}

// fakeStorage records every write the pipeline makes.
type fakeStorage struct {
	billWatermarks     map[model.BillKey]*time.Time
	memberWatermarks   map[string]*time.Time
	existingMembers    map[string]bool
	existingCommittees map[string]bool
	reportTotals       map[string]int
	reportLinked       map[string]int

	upsertedMembers  []model.Member
	committeeStubs   []model.Committee
	billBatches      [][]*model.BillRecord
	memberBatches    [][]model.Member
	committeeBatches [][]model.Committee
	reportBatches    [][]model.CommitteeReport

	writeBillErr   func(batch []*model.BillRecord) error
	writeMemberErr func(batch []model.Member) error
	writeReportErr func(batch []model.CommitteeReport) error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		billWatermarks:     map[model.BillKey]*time.Time{},
		memberWatermarks:   map[string]*time.Time{},
		existingMembers:    map[string]bool{},
		existingCommittees: map[string]bool{},
		reportTotals:       map[string]int{},
		reportLinked:       map[string]int{},
	}
}

func (f *fakeStorage) BillWatermarks(ctx context.Context, congress int) (map[model.BillKey]*time.Time, error) {
	return f.billWatermarks, nil
}

func (f *fakeStorage) MemberWatermarks(ctx context.Context) (map[string]*time.Time, error) {
	return f.memberWatermarks, nil
}

func (f *fakeStorage) ExistingMembers(ctx context.Context, bioguideIDs []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, id := range bioguideIDs {
		if f.existingMembers[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeStorage) ExistingCommittees(ctx context.Context, systemCodes []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, code := range systemCodes {
		if f.existingCommittees[code] {
			out[code] = true
		}
	}
	return out, nil
}

func (f *fakeStorage) UpsertMembers(ctx context.Context, members []model.Member) error {
	f.upsertedMembers = append(f.upsertedMembers, members...)
	for _, m := range members {
		f.existingMembers[m.BioguideID] = true
	}
	return nil
}

func (f *fakeStorage) UpsertCommitteeStubs(ctx context.Context, committees []model.Committee) error {
	f.committeeStubs = append(f.committeeStubs, committees...)
	for _, c := range committees {
		f.existingCommittees[c.SystemCode] = true
	}
	return nil
}

func (f *fakeStorage) WriteBillBatch(ctx context.Context, records []*model.BillRecord, syncedAt time.Time) error {
	if f.writeBillErr != nil {
		if err := f.writeBillErr(records); err != nil {
			return err
		}
	}
	f.billBatches = append(f.billBatches, records)
	return nil
}

func (f *fakeStorage) WriteMemberBatch(ctx context.Context, members []model.Member, syncedAt time.Time) error {
	if f.writeMemberErr != nil {
		if err := f.writeMemberErr(members); err != nil {
			return err
		}
	}
	f.memberBatches = append(f.memberBatches, members)
	return nil
}

func (f *fakeStorage) WriteCommitteeBatch(ctx context.Context, committees []model.Committee) error {
	f.committeeBatches = append(f.committeeBatches, committees)
	return nil
}

func (f *fakeStorage) WriteReportBatch(ctx context.Context, reports []model.CommitteeReport) error {
	if f.writeReportErr != nil {
		if err := f.writeReportErr(reports); err != nil {
			return err
		}
	}
	f.reportBatches = append(f.reportBatches, reports)
	return nil
}

func (f *fakeStorage) ReportCounts(ctx context.Context, committeeCode string, congress int) (int, int, error) {
	return f.reportTotals[committeeCode], f.reportLinked[committeeCode], nil
}

// newTestOrchestrator builds an orchestrator with time and sleep stubbed out.
func newTestOrchestrator(api API, store Storage, opts Options) *Orchestrator {
	o := New(api, store, opts)
	o.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	o.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o
}
