package storage

import "fmt"

// ErrorKind classifies provider faults into a backend-agnostic taxonomy so
// the dispatcher's failure handling does not depend on the provider.
type ErrorKind int

const (
	ErrorKindInternal ErrorKind = iota
	ErrorKindBadInput
	ErrorKindCredentialExpired
	ErrorKindPathConflict
	ErrorKindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindBadInput:
		return "bad_input"
	case ErrorKindCredentialExpired:
		return "credential_expired"
	case ErrorKindPathConflict:
		return "path_conflict"
	case ErrorKindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    ErrorKind
	Backend string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s storage error (%s): %v", e.Backend, e.Kind, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s storage error (%s): status %d", e.Backend, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s storage error (%s)", e.Backend, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether a retry may succeed without reconfiguring the
// address (rate limiting and provider-side faults).
func (e *Error) Transient() bool {
	return e.Kind == ErrorKindRateLimited || e.Kind == ErrorKindInternal
}
