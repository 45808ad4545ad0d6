package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitoldata/congress-mirror/model"
)

// testStore connects to the database named by CONGRESS_TEST_DATABASE_URL and
// applies the schema. Tests using it generate unique keys so repeated runs
// against the same database do not collide.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CONGRESS_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CONGRESS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.InitSchema(ctx))
	return s
}

func uniqueCode(prefix string) string {
	return strings.ToLower(prefix + strings.ReplaceAll(uuid.NewString()[:12], "-", ""))
}

func TestWriteMemberBatchSetsWatermarkOnFirstInsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id := "T" + strings.ToUpper(uuid.NewString()[:6])
	syncedAt := time.Now().UTC().Truncate(time.Second)
	err := s.WriteMemberBatch(ctx, []model.Member{
		{BioguideID: id, LastName: "Fresh", State: "Vermont", IsCurrent: true},
	}, syncedAt)
	require.NoError(t, err)

	watermarks, err := s.MemberWatermarks(ctx)
	require.NoError(t, err)
	got, ok := watermarks[id]
	require.True(t, ok)
	require.NotNil(t, got, "first insert must advance the watermark")
	assert.WithinDuration(t, syncedAt, *got, time.Second)
}

func TestStubUpsertLeavesWatermarkNull(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id := "T" + strings.ToUpper(uuid.NewString()[:6])
	require.NoError(t, s.UpsertMembers(ctx, []model.Member{{BioguideID: id}}))

	watermarks, err := s.MemberWatermarks(ctx)
	require.NoError(t, err)
	got, ok := watermarks[id]
	require.True(t, ok)
	assert.Nil(t, got, "stub rows stay due for a full sync")
}

func TestCommitteeChamberNeverRegresses(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	code := uniqueCode("hx")
	require.NoError(t, s.WriteCommitteeBatch(ctx, []model.Committee{
		{SystemCode: code, Name: "Testing", Chamber: model.ChamberHouse},
	}))
	// a later payload without chamber information must not erase it
	require.NoError(t, s.WriteCommitteeBatch(ctx, []model.Committee{
		{SystemCode: code, Chamber: model.ChamberUnknown},
	}))

	var chamber string
	err := s.pool.QueryRow(ctx,
		`SELECT chamber FROM committees WHERE system_code = $1`, code).Scan(&chamber)
	require.NoError(t, err)
	assert.Equal(t, string(model.ChamberHouse), chamber)
}

func TestWriteCommitteeBatchSkipsUnknownParent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	child := uniqueCode("hx")
	missingParent := uniqueCode("hx")
	err := s.WriteCommitteeBatch(ctx, []model.Committee{
		{SystemCode: child, Name: "Orphan", Chamber: model.ChamberHouse, ParentCode: &missingParent},
	})
	require.NoError(t, err, "a missing parent must not fail the batch")

	var parent *string
	err = s.pool.QueryRow(ctx,
		`SELECT parent_code FROM committees WHERE system_code = $1`, child).Scan(&parent)
	require.NoError(t, err)
	assert.Nil(t, parent)
}

func TestWriteBillBatchRollsBackWhole(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	congress := 90000 + int(time.Now().UnixNano()%10000)
	key := model.BillKey{Congress: congress, Type: "hr", Number: 1}
	record := &model.BillRecord{
		Bill: model.Bill{Key: key, Title: "Doomed"},
		// violates the members foreign key and must take the bill row with it
		Cosponsors: []model.Cosponsor{{BioguideID: "X" + strings.ToUpper(uuid.NewString()[:6])}},
	}

	err := s.WriteBillBatch(ctx, []*model.BillRecord{record}, time.Now())
	var batchErr *BatchWriteError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, "bills", batchErr.Family)

	watermarks, err := s.BillWatermarks(ctx, congress)
	require.NoError(t, err)
	assert.NotContains(t, watermarks, key, "rolled-back batch must leave no rows")
}
