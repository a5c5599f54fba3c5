package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure kinds callers are expected to branch on.
// Empty retrieval and "no documents" are valid results, not errors, and
// have no sentinel here.
var (
	// ErrChunkConfig marks an invalid chunk size/overlap combination.
	ErrChunkConfig = errors.New("invalid chunker configuration")

	// ErrTestCaseNotFound marks a lookup for an unknown test-case id.
	ErrTestCaseNotFound = errors.New("testcase not found")
)

// StoreWriteError reports a rejected vector-store batch. Batches committed
// before the failing one remain committed; FailedIDs names the chunk ids
// of the rejected batch when they are known.
type StoreWriteError struct {
	Collection string
	FailedIDs  []string
	Err        error
}

func (e *StoreWriteError) Error() string {
	if len(e.FailedIDs) == 0 {
		return fmt.Sprintf("vector store write to %q failed: %v", e.Collection, e.Err)
	}
	return fmt.Sprintf("vector store write to %q failed for ids [%s]: %v",
		e.Collection, strings.Join(e.FailedIDs, ", "), e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
