package client

import "fmt"

// ThrottledError reports that the upstream kept answering 429 after the
// page-level retries were exhausted. The orchestrator treats it as the signal
// to cool the whole batch down and replay it.
type ThrottledError struct {
	URL      string
	Attempts int
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled after %d attempts: %s", e.Attempts, e.URL)
}

// PartialFetchError reports that a paginated walk stopped early on a
// non-throttle failure. Collected counts the items gathered before the stop;
// callers use them and let the next scheduled run fill the gap.
type PartialFetchError struct {
	URL       string
	Collected int
	Err       error
}

func (e *PartialFetchError) Error() string {
	return fmt.Sprintf("page walk stopped after %d items at %s: %v", e.Collected, e.URL, e.Err)
}

func (e *PartialFetchError) Unwrap() error { return e.Err }

// StatusError reports a non-success, non-throttle HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
