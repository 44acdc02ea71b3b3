package ledger

import "errors"

var (
	// ErrFileNotFound is returned when a filename has no entry in the ledger.
	ErrFileNotFound = errors.New("file not found in ledger")

	// ErrNoChunks is returned when a file is recorded with no chunk ids.
	ErrNoChunks = errors.New("no chunk ids to record")

	// ErrNotFound is returned by the store when a brain has no ledger record.
	ErrNotFound = errors.New("ledger record not found")
)
