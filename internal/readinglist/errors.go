package readinglist

import "errors"

// Failure values returned by the service and store. Callers match with
// errors.Is to decide what to show the user.
var (
	// ErrDuplicateItem means an add referenced a paper already in the list.
	ErrDuplicateItem = errors.New("paper already in reading list")

	// ErrNotFound means an update or remove referenced a missing item id.
	ErrNotFound = errors.New("item not found in reading list")

	// ErrInvalidImportFormat means an import payload failed validation.
	ErrInvalidImportFormat = errors.New("invalid import file format")

	// ErrInvalidValue means a mutation carried a priority or read status
	// outside the allowed set.
	ErrInvalidValue = errors.New("invalid priority or read status")

	// ErrStorageWrite wraps failures to persist the document. The in-memory
	// state is left unchanged when it is returned.
	ErrStorageWrite = errors.New("failed to save reading list")

	// ErrCorruptDocument marks a persisted document that could not be
	// parsed. It is reported, never returned as a fatal error: loading
	// recovers with an empty document.
	ErrCorruptDocument = errors.New("stored reading list is corrupt")
)
