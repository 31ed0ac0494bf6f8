package failure

import "time"

// Transport identifies the boundary protocol an envelope is serialized
// over. It changes the wire shape, never the envelope's field
// semantics.
type Transport int

const (
	// TransportRequest is the request/response (HTTP) boundary.
	TransportRequest Transport = iota
	// TransportMessage is the message-bus (RPC over queue) boundary.
	TransportMessage
)

func (t Transport) String() string {
	switch t {
	case TransportRequest:
		return "request"
	case TransportMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Envelope is the normalized, transport-agnostic error payload. It is
// built once per failure and never mutated afterwards; Errors always
// holds at least one entry. Path and Method are stamped by the
// request/response adapter only.
type Envelope struct {
	StatusCode int       `json:"statusCode"`
	Message    string    `json:"message"`
	Errors     []string  `json:"errors"`
	Timestamp  time.Time `json:"timestamp"`
	Path       string    `json:"path,omitempty"`
	Method     string    `json:"method,omitempty"`
}

// WithRequest returns a copy of the envelope carrying the HTTP request
// context.
func (e Envelope) WithRequest(method, path string) Envelope {
	e.Method = method
	e.Path = path
	return e
}

// Err wraps the envelope as an error so a transport adapter can
// re-raise it without losing the normalized payload.
func (e Envelope) Err() error {
	return &Error{Envelope: e}
}
