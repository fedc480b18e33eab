package stratacache

import "github.com/ashish-admin/go-strata-cache/internal/errs"

var (
	// ErrCapacityExceeded reports that no tier accepted a write.
	ErrCapacityExceeded = errs.ErrCapacityExceeded

	// ErrTierUnavailable reports a backend failure that disabled a tier.
	ErrTierUnavailable = errs.ErrTierUnavailable

	// ErrSerialization reports a typed-value encode or decode failure.
	ErrSerialization = errs.ErrSerialization
)
