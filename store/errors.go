package store

import "fmt"

// BatchWriteError reports a failed batch transaction. Nothing from the batch
// was persisted; the orchestrator logs it and moves on to the next batch.
type BatchWriteError struct {
	Family string
	Size   int
	Err    error
}

func (e *BatchWriteError) Error() string {
	return fmt.Sprintf("%s batch of %d rolled back: %v", e.Family, e.Size, e.Err)
}

func (e *BatchWriteError) Unwrap() error { return e.Err }
