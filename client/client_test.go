package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitoldata/congress-mirror/model"
)

func newTestClient(baseURL string) *Client {
	return New(Options{
		BaseURL:       baseURL,
		APIKey:        "secret-key",
		PageSize:      2,
		PageDelay:     time.Millisecond,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
		Timeout:       5 * time.Second,
	})
}

func TestListBillsFollowsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		if r.URL.Query().Get("offset") == "2" {
			fmt.Fprint(w, `{"bills": [{"congress": 119, "type": "hr", "number": 3}], "pagination": {"count": 3}}`)
			return
		}
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		fmt.Fprintf(w, `{"bills": [
			{"congress": 119, "type": "hr", "number": 1},
			{"congress": 119, "type": "hr", "number": 2}
		], "pagination": {"count": 3, "next": "%s/bill/119/hr?offset=2"}}`, server.URL)
	}))
	defer server.Close()

	bills, err := newTestClient(server.URL).ListBills(context.Background(), 119, "hr")
	require.NoError(t, err)
	require.Len(t, bills, 3)
	assert.Equal(t, model.BillKey{Congress: 119, Type: "hr", Number: 3}, bills[2].Key)
}

func TestGetRetriesThrottleThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"bills": [], "pagination": {"count": 0}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListBills(context.Background(), 119, "hr")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetSurfacesThrottledErrorAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListBills(context.Background(), 119, "hr")
	var throttled *ThrottledError
	require.ErrorAs(t, err, &throttled)
	// initial attempt plus both retries
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, throttled.Attempts)
}

func TestWalkReturnsPartialFetchError(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, `{"bills": [
			{"congress": 119, "type": "hr", "number": 1},
			{"congress": 119, "type": "hr", "number": 2}
		], "pagination": {"count": 3, "next": "%s/bill/119/hr?offset=2"}}`, server.URL)
	}))
	defer server.Close()

	bills, err := newTestClient(server.URL).ListBills(context.Background(), 119, "hr")
	var partial *PartialFetchError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Collected)
	// everything gathered before the failing page is kept
	assert.Len(t, bills, 2)

	var status *StatusError
	require.ErrorAs(t, partial.Err, &status)
	assert.Equal(t, http.StatusInternalServerError, status.StatusCode)
	// errors carry the unsigned URL so the key never leaks into logs
	assert.NotContains(t, status.URL, "secret-key")
}

func TestFetchBillHydratesSubResources(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bill/119/hr/1":
			fmt.Fprintf(w, `{"bill": {
				"congress": 119, "type": "HR", "number": 1, "title": "An Act",
				"sponsors": [{"bioguideId": "A000001"}],
				"actions": {"count": 1, "url": "%[1]s/bill/119/hr/1/actions"},
				"cosponsors": {"count": 1, "url": "%[1]s/bill/119/hr/1/cosponsors"}
			}}`, server.URL)
		case "/bill/119/hr/1/actions":
			fmt.Fprint(w, `{"actions": [{"actionDate": "2025-01-15", "text": "Introduced", "committees": [{"systemCode": "HSJU00"}]}], "pagination": {"count": 1}}`)
		case "/bill/119/hr/1/cosponsors":
			fmt.Fprint(w, `{"cosponsors": [{"bioguideId": "B000002", "sponsorshipDate": "2025-01-20"}], "pagination": {"count": 1}}`)
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	record, err := newTestClient(server.URL).FetchBill(context.Background(), model.BillKey{Congress: 119, Type: "hr", Number: 1})
	require.NoError(t, err)
	assert.Equal(t, "An Act", record.Bill.Title)
	require.Len(t, record.Actions, 1)
	assert.Equal(t, []string{"hsju00"}, record.Actions[0].CommitteeCodes)
	require.Len(t, record.Cosponsors, 1)
	assert.Empty(t, record.Summaries)
}

func TestFetchBillAbsorbsSubResourceFailure(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bill/119/hr/1":
			fmt.Fprintf(w, `{"bill": {
				"congress": 119, "type": "hr", "number": 1, "title": "An Act",
				"actions": {"count": 5, "url": "%s/bill/119/hr/1/actions"}
			}}`, server.URL)
		case "/bill/119/hr/1/actions":
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	record, err := newTestClient(server.URL).FetchBill(context.Background(), model.BillKey{Congress: 119, Type: "hr", Number: 1})
	require.NoError(t, err)
	assert.Equal(t, "An Act", record.Bill.Title)
	assert.Empty(t, record.Actions)
}

func TestFetchBillPropagatesThrottle(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bill/119/hr/1":
			fmt.Fprintf(w, `{"bill": {
				"congress": 119, "type": "hr", "number": 1,
				"actions": {"count": 5, "url": "%s/bill/119/hr/1/actions"}
			}}`, server.URL)
		case "/bill/119/hr/1/actions":
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchBill(context.Background(), model.BillKey{Congress: 119, Type: "hr", Number: 1})
	var throttled *ThrottledError
	require.ErrorAs(t, err, &throttled)
}

func TestListMembersCurrentOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("currentMember"))
		fmt.Fprint(w, `{"members": [{"bioguideId": "A000001", "name": "Alpha, Ada"}], "pagination": {"count": 1}}`)
	}))
	defer server.Close()

	members, err := newTestClient(server.URL).ListMembers(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "A000001", members[0].BioguideID)
}

func TestGetReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GetMember(context.Background(), "Z000000")
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
}

func TestGetHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New(Options{
		BaseURL:       server.URL,
		APIKey:        "secret-key",
		PageDelay:     time.Millisecond,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListBills(ctx, 119, "hr")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
