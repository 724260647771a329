package common

import "fmt"

// StoreErrType ...
type StoreErrType uint32

const (
	// KeyNotFound ...
	KeyNotFound StoreErrType = iota
	// PreconditionFailed ...
	PreconditionFailed
)

// StoreErr ...
type StoreErr struct {
	store   string
	errType StoreErrType
	key     string
}

// NewStoreErr ...
func NewStoreErr(store string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		store:   store,
		errType: errType,
		key:     key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case PreconditionFailed:
		m = "Precondition Failed"
	}

	return fmt.Sprintf("%s, %s, %s", e.store, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that it's code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
