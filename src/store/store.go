package store

// Store is the persistence boundary of the key-value workloads. Values
// are raw JSON fragments; the store does not interpret them beyond byte
// equality. Implementations must be safe for concurrent use, because
// every inbound request runs in its own handler goroutine.
type Store interface {
	// Get returns the value stored under key. It returns a
	// common.StoreErr of type KeyNotFound when the key has never been
	// written.
	Get(key string) ([]byte, error)

	// Put stores value under key, overwriting any previous value.
	Put(key string, value []byte) error

	// CAS replaces the value under key with to, provided the current
	// value equals from byte-for-byte. When the key is absent, CAS
	// creates it with to if createIfAbsent is set, and fails with
	// KeyNotFound otherwise. A value mismatch fails with
	// PreconditionFailed.
	CAS(key string, from, to []byte, createIfAbsent bool) error

	// Close releases the resources held by the store.
	Close() error
}
