// Package failure defines the error taxonomy shared by every transport
// and the normalizer that converts any raised value into a single,
// stable envelope. Failures are classified by their concrete type, not
// by probing fields, so the taxonomy is decided at construction time.
package failure

import (
	"fmt"
	"net/http"
	"strings"
)

// Domain is an intentionally raised, application-level failure. Its
// message is safe to expose to callers and its status is never
// escalated to a 5xx class.
type Domain struct {
	Status  int
	Message string
}

// NewDomain creates a domain failure with the generic bad-request
// status. An empty message is replaced with the status text so the
// non-empty invariant holds.
func NewDomain(message string) *Domain {
	return NewDomainStatus(http.StatusBadRequest, message)
}

// NewDomainStatus creates a domain failure with an explicit status.
func NewDomainStatus(status int, message string) *Domain {
	if status == 0 {
		status = http.StatusBadRequest
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Domain{Status: status, Message: message}
}

func (e *Domain) Error() string {
	return e.Message
}

// Validation is a failure produced by input-schema checks. It carries
// every violated rule in order; callers see all of them, not just the
// first.
type Validation struct {
	Messages []string
}

// NewValidation creates a validation failure from one or more field
// messages.
func NewValidation(messages ...string) *Validation {
	return &Validation{Messages: messages}
}

func (e *Validation) Error() string {
	return strings.Join(e.Messages, "; ")
}

// Response is a generic failure that carries a pre-built structured
// response body, typically surfaced by an upstream client or framework
// layer. Label is the short error name accompanying the message; when
// absent the normalizer falls back to a generic label for the status.
type Response struct {
	Status   int
	Messages []string
	Label    string
}

func (e *Response) Error() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, "; ")
	}
	return http.StatusText(e.Status)
}

// Error carries an already-normalized envelope through a Go error
// chain. The message transport re-raises one of these so the bus can
// apply its own retry policy, and the client side unwraps it back into
// the envelope. Normalizing it again is a no-op.
type Error struct {
	Envelope Envelope
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Envelope.StatusCode, e.Envelope.Message)
}
