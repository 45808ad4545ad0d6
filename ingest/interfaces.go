package ingest

import (
	"context"
	"time"

	"github.com/capitoldata/congress-mirror/client"
	"github.com/capitoldata/congress-mirror/model"
	"github.com/capitoldata/congress-mirror/store"
)

// API is the upstream surface the pipeline consumes. client.Client implements
// it; tests substitute fakes.
type API interface {
	ListBills(ctx context.Context, congress int, billType string) ([]model.BillListItem, error)
	FetchBill(ctx context.Context, key model.BillKey) (*model.BillRecord, error)
	GetMember(ctx context.Context, bioguideID string) (*model.Member, error)
	ListMembers(ctx context.Context, currentOnly bool) ([]model.MemberListItem, error)
	ListCommittees(ctx context.Context) ([]model.CommitteeListItem, error)
	GetCommitteeDetail(ctx context.Context, detailURL string) (*model.CommitteeDetail, error)
	ListCommitteeReports(ctx context.Context, reportsURL string) ([]model.ReportListItem, error)
	GetCommitteeReport(ctx context.Context, reportURL string) ([]model.CommitteeReport, error)
}

// Storage is the downstream surface the pipeline produces into. store.Store
// implements it.
type Storage interface {
	BillWatermarks(ctx context.Context, congress int) (map[model.BillKey]*time.Time, error)
	MemberWatermarks(ctx context.Context) (map[string]*time.Time, error)
	ExistingMembers(ctx context.Context, bioguideIDs []string) (map[string]bool, error)
	ExistingCommittees(ctx context.Context, systemCodes []string) (map[string]bool, error)
	UpsertMembers(ctx context.Context, members []model.Member) error
	UpsertCommitteeStubs(ctx context.Context, committees []model.Committee) error
	WriteBillBatch(ctx context.Context, records []*model.BillRecord, syncedAt time.Time) error
	WriteMemberBatch(ctx context.Context, members []model.Member, syncedAt time.Time) error
	WriteCommitteeBatch(ctx context.Context, committees []model.Committee) error
	WriteReportBatch(ctx context.Context, reports []model.CommitteeReport) error
	ReportCounts(ctx context.Context, committeeCode string, congress int) (total, linked int, err error)
}

var (
	_ API     = (*client.Client)(nil)
	_ Storage = (*store.Store)(nil)
)
