package detection

import "errors"

var (
	// ErrPersistFailed wraps a rejected batch insert. Nothing from the pass
	// was written.
	ErrPersistFailed    = errors.New("persist_failed")
	ErrLeaseUnavailable = errors.New("lease_detector_unavailable")
)
