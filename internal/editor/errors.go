package editor

import (
	"errors"
	"fmt"
)

var (
	ErrSaveInProgress  = errors.New("a save is already in progress for this marker")
	ErrUnknownRef      = errors.New("no draft for marker")
	ErrNotExisting     = errors.New("marker has not been created yet")
	ErrNoPendingDelete = errors.New("no delete is awaiting confirmation")
	ErrDeleteRefused   = errors.New("upstream refused to delete marker")
)

// BatchError reports a save-all that stopped at a failed mutation. Entries
// saved before the failure stay saved.
type BatchError struct {
	Failed MarkerRef
	Saved  int
	Total  int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch save incomplete: saved %d of %d, %s failed: %v", e.Saved, e.Total, e.Failed, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
