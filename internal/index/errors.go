package index

import "errors"

var (
	// ErrUninitializedIndex means a consumer asked for an index that was
	// never tracked.
	ErrUninitializedIndex = errors.New("index: uninitialized index")

	// ErrOrderingViolation means a built plan lets a consumer run after a
	// writer of the same component without a sync unit in between.
	ErrOrderingViolation = errors.New("index: ordering violation")

	// ErrKeyMismatch means a consumer asked for a key type other than the
	// one the component is tracked by.
	ErrKeyMismatch = errors.New("index: key type mismatch")
)
