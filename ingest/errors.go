package ingest

import "fmt"

// MissingReferenceError reports a foreign entity that could not be resolved
// even after an explicit fetch attempt. Only the referencing fact is dropped,
// never the batch.
type MissingReferenceError struct {
	Kind string
	ID   string
	Err  error
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("unresolved %s reference %s: %v", e.Kind, e.ID, e.Err)
}

func (e *MissingReferenceError) Unwrap() error { return e.Err }
