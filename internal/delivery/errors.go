package delivery

import "errors"

var (
	// ErrQuotaExceeded rejects a send from a free-tier user whose daily
	// budget is spent. Recoverable by waiting for the next day or upgrading.
	ErrQuotaExceeded = errors.New("daily message quota exceeded")

	// ErrInvalidTarget rejects a send that does not resolve to exactly one
	// of receiver or group.
	ErrInvalidTarget = errors.New("exactly one of receiver or group must be set")
)
