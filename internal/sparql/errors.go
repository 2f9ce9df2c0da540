package sparql

import "fmt"

// Kind classifies a fetch failure.
type Kind string

const (
	// KindTransport covers network failures, timeouts and an open breaker.
	KindTransport Kind = "transport"
	// KindStatus is a non-2xx HTTP response.
	KindStatus Kind = "status"
	// KindDecode is a response body that does not match the result schema.
	KindDecode Kind = "decode"
)

// FetchError reports why triples for a term could not be fetched.
type FetchError struct {
	Term   string
	Kind   Kind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Term == "" {
		return fmt.Sprintf("sparql %s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %q: sparql %s error: %v", e.Term, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) endpointFault() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindStatus:
		return e.Status >= 500
	default:
		return false
	}
}
