// Package client implements the Congress API client: cursor pagination,
// throttle handling and the typed fetchers for each mirrored resource.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/capitoldata/congress-mirror/model"
)

// DefaultBaseURL is the production Congress API root.
const DefaultBaseURL = "https://api.congress.gov/v3"

// Options configures a Client. Zero values fall back to conservative
// defaults.
type Options struct {
	BaseURL       string
	APIKey        string
	PageSize      int
	PageDelay     time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Timeout       time.Duration
}

// Client talks to the Congress API. All outbound requests share one pacing
// limiter so the whole process stays under the request budget.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	pageSize      int
	retryAttempts int
	retryDelay    time.Duration
	limiter       *rate.Limiter
}

// New creates a Congress API client from the given options.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 250
	}
	if opts.PageDelay <= 0 {
		opts.PageDelay = time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: opts.Timeout},
		baseURL:       opts.BaseURL,
		apiKey:        opts.APIKey,
		pageSize:      opts.PageSize,
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		limiter:       rate.NewLimiter(rate.Every(opts.PageDelay), 1),
	}
}

// get issues one GET with the rate-limit guard applied: the pacing limiter is
// awaited before every attempt, and a 429 answer retries the same URL after
// retryDelay up to retryAttempts times before surfacing a ThrottledError.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	signed, err := c.signURL(rawURL)
	if err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, signed, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", rawURL, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt+1 > c.retryAttempts {
				return nil, &ThrottledError{URL: rawURL, Attempts: attempt + 1}
			}
			log.Warn().
				Str("url", rawURL).
				Int("attempt", attempt+1).
				Dur("retry_delay", c.retryDelay).
				Msg("Throttled by upstream, retrying same request")
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
		}
		if readErr != nil {
			return nil, fmt.Errorf("read response %s: %w", rawURL, readErr)
		}
		return body, nil
	}
}

// signURL appends the API key and JSON format to a request URL. The key is
// never logged; log the unsigned URL instead.
func (c *Client) signURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %s: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("format", "json")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// listURL builds a collection URL under the API root with the configured page
// size.
func (c *Client) listURL(path string) string {
	return fmt.Sprintf("%s%s?limit=%s", c.baseURL, path, strconv.Itoa(c.pageSize))
}

// walk follows a cursor-paginated collection from startURL, decoding each
// page with the endpoint's decode contract until the next cursor is absent.
// No page is fetched ahead of need. On failure it returns everything gathered
// so far: a ThrottledError or cancellation passes through unchanged, anything
// else is reported as a PartialFetchError.
func walk[T any](ctx context.Context, c *Client, startURL string, decode func([]byte) ([]T, string, error)) ([]T, error) {
	var items []T
	pageURL := startURL
	for pageURL != "" {
		body, err := c.get(ctx, pageURL)
		if err != nil {
			return items, walkError(pageURL, len(items), err)
		}
		pageItems, next, err := decode(body)
		if err != nil {
			return items, walkError(pageURL, len(items), err)
		}
		items = append(items, pageItems...)
		pageURL = next
	}
	return items, nil
}

func walkError(pageURL string, collected int, err error) error {
	var throttled *ThrottledError
	if errors.As(err, &throttled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &PartialFetchError{URL: pageURL, Collected: collected, Err: err}
}

// ListBills enumerates one congress's bills of one type. A PartialFetchError
// is returned alongside whatever was gathered before the walk stopped.
func (c *Client) ListBills(ctx context.Context, congress int, billType string) ([]model.BillListItem, error) {
	start := c.listURL(fmt.Sprintf("/bill/%d/%s", congress, billType))
	return walk(ctx, c, start, model.DecodeBillListPage)
}

// GetBillDetail fetches the bill detail endpoint for one natural key.
func (c *Client) GetBillDetail(ctx context.Context, key model.BillKey) (*model.BillDetail, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/bill/%d/%s/%d", c.baseURL, key.Congress, key.Type, key.Number))
	if err != nil {
		return nil, err
	}
	return model.DecodeBillDetail(body)
}

// FetchBill hydrates one bill: the detail row plus every nested sub-resource
// reachable from it. Sub-resource walks that stop early are tolerated (the
// partial items are kept and the gap heals on the next run); throttling
// aborts the hydration so the orchestrator can cool the batch down.
func (c *Client) FetchBill(ctx context.Context, key model.BillKey) (*model.BillRecord, error) {
	detail, err := c.GetBillDetail(ctx, key)
	if err != nil {
		return nil, err
	}
	record := &model.BillRecord{
		Bill:          detail.Bill,
		CostEstimates: detail.CostEstimates,
		Law:           detail.Law,
	}

	if record.Actions, err = subWalk(ctx, c, key, "actions", detail.ActionsURL, model.DecodeActionsPage); err != nil {
		return nil, err
	}
	if record.Cosponsors, err = subWalk(ctx, c, key, "cosponsors", detail.CosponsorsURL, model.DecodeCosponsorsPage); err != nil {
		return nil, err
	}
	if record.RelatedBills, err = subWalk(ctx, c, key, "related_bills", detail.RelatedURL, model.DecodeRelatedBillsPage); err != nil {
		return nil, err
	}
	if record.Summaries, err = subWalk(ctx, c, key, "summaries", detail.SummariesURL, model.DecodeSummariesPage); err != nil {
		return nil, err
	}
	if record.Titles, err = subWalk(ctx, c, key, "titles", detail.TitlesURL, model.DecodeTitlesPage); err != nil {
		return nil, err
	}
	if record.TextVersions, err = subWalk(ctx, c, key, "text_versions", detail.TextURL, model.DecodeTextVersionsPage); err != nil {
		return nil, err
	}
	if record.Subjects, err = subWalk(ctx, c, key, "subjects", detail.SubjectsURL, model.DecodeSubjectsPage); err != nil {
		return nil, err
	}
	return record, nil
}

// subWalk walks one of a bill's sub-resource collections. An absent URL means
// the bill has none of that resource. Partial fetches are logged and absorbed;
// throttling propagates.
func subWalk[T any](ctx context.Context, c *Client, key model.BillKey, name, startURL string, decode func([]byte) ([]T, string, error)) ([]T, error) {
	if startURL == "" {
		return nil, nil
	}
	items, err := walk(ctx, c, startURL, decode)
	if err != nil {
		var partial *PartialFetchError
		if errors.As(err, &partial) {
			log.Warn().
				Str("bill", key.String()).
				Str("resource", name).
				Int("collected", partial.Collected).
				Err(partial.Err).
				Msg("Sub-resource walk stopped early, keeping partial items")
			return items, nil
		}
		return nil, err
	}
	return items, nil
}

// ListMembers enumerates members, optionally restricted to current ones.
func (c *Client) ListMembers(ctx context.Context, currentOnly bool) ([]model.MemberListItem, error) {
	start := c.listURL("/member")
	if currentOnly {
		start += "&currentMember=true"
	}
	return walk(ctx, c, start, model.DecodeMemberListPage)
}

// GetMember fetches the member detail endpoint for one bioguide identifier.
func (c *Client) GetMember(ctx context.Context, bioguideID string) (*model.Member, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/member/%s", c.baseURL, bioguideID))
	if err != nil {
		return nil, err
	}
	return model.DecodeMemberDetail(body)
}

// ListCommittees enumerates every committee and subcommittee.
func (c *Client) ListCommittees(ctx context.Context) ([]model.CommitteeListItem, error) {
	return walk(ctx, c, c.listURL("/committee"), model.DecodeCommitteeListPage)
}

// GetCommitteeDetail fetches a committee's detail endpoint by the URL embedded
// in its list entry.
func (c *Client) GetCommitteeDetail(ctx context.Context, detailURL string) (*model.CommitteeDetail, error) {
	body, err := c.get(ctx, detailURL)
	if err != nil {
		return nil, err
	}
	return model.DecodeCommitteeDetail(body)
}

// ListCommitteeReports walks a committee's reports sub-resource.
func (c *Client) ListCommitteeReports(ctx context.Context, reportsURL string) ([]model.ReportListItem, error) {
	if reportsURL == "" {
		return nil, nil
	}
	return walk(ctx, c, reportsURL, model.DecodeReportListPage)
}

// GetCommitteeReport fetches one report (all of its parts) by the URL embedded
// in a report list entry.
func (c *Client) GetCommitteeReport(ctx context.Context, reportURL string) ([]model.CommitteeReport, error) {
	body, err := c.get(ctx, reportURL)
	if err != nil {
		return nil, err
	}
	return model.DecodeCommitteeReport(body)
}
