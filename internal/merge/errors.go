package merge

import "fmt"

// ValidationError rejects a request before any processing begins: bad file
// type, size over the ceiling, too many files, or an empty upload set.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ProcessingError means one specific input could not be parsed or embedded.
// Filename carries the original upload name so the caller can tell the user
// which file broke the merge.
type ProcessingError struct {
	Filename string
	Err      error
}

func (e *ProcessingError) Error() string {
	if e.Filename == "" {
		return fmt.Sprintf("merge failed: %v", e.Err)
	}
	return fmt.Sprintf("cannot process %q: %v", e.Filename, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// StorageError wraps a failed persistence operation. Deletion failures are
// never surfaced this way; they are logged and swallowed by the store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
