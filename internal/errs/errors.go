// Package errs holds the error taxonomy shared by the cache components.
// The root package re-exports these sentinels for callers.
package errs

import "errors"

var (
	// ErrTierUnavailable marks a backend as inaccessible; the owning tier
	// is downgraded to disabled for the remainder of the session.
	ErrTierUnavailable = errors.New("tier unavailable")

	// ErrSerialization marks a payload that cannot be encoded. Fatal to
	// the Set call that produced it only.
	ErrSerialization = errors.New("payload serialization failed")

	// ErrCapacityExceeded is returned when no enabled tier can hold an
	// entry. The cache remains usable.
	ErrCapacityExceeded = errors.New("no tier can hold entry")

	// ErrCorruptEntry marks a stored record that fails to decode. Treated
	// like expiry: the entry is removed and the read continues.
	ErrCorruptEntry = errors.New("corrupt cache entry")

	// ErrCompression marks a non-fatal compression failure; the payload
	// falls back to uncompressed storage.
	ErrCompression = errors.New("compression failed")
)
