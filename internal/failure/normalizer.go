package failure

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Fixed envelope literals. Unclassified failures never leak their own
// message; callers only ever see the generic labels.
const (
	validationMessage = "Validation error"
	internalMessage   = "Internal server error"
	internalLabel     = "Internal Server Error"
)

// Normalizer converts any raised value into exactly one Envelope. It
// is stateless and safe for concurrent use; its only side effect is a
// single diagnostic log record per call.
type Normalizer struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewNormalizer creates a normalizer writing diagnostics to the given
// logger.
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger: logger,
		now:    time.Now,
	}
}

// WithClock sets a custom clock.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	return &Normalizer{
		logger: n.logger,
		now:    now,
	}
}

// Normalize classifies a raised value and returns its envelope. It
// never fails itself: anything it cannot classify, including nil and
// non-error panic values, takes the unclassified branch. Re-normalizing
// an envelope (or an envelope travelling as *Error) returns it
// unchanged.
func (n *Normalizer) Normalize(raised any, transport Transport) Envelope {
	switch f := raised.(type) {
	case Envelope:
		n.logger.Debug("failure already normalized", "transport", transport.String(), "status", f.StatusCode)
		return f

	case *Error:
		if f != nil {
			n.logger.Debug("failure already normalized", "transport", transport.String(), "status", f.Envelope.StatusCode)
			return f.Envelope
		}

	case *Domain:
		if f != nil {
			n.logger.Warn("domain failure",
				"transport", transport.String(),
				"status", f.Status,
				"message", f.Message,
			)
			return Envelope{
				StatusCode: f.Status,
				Message:    f.Message,
				Errors:     []string{f.Message},
				Timestamp:  n.now().UTC(),
			}
		}

	case *Validation:
		if f != nil && len(f.Messages) > 0 {
			n.logger.Warn("validation failure",
				"transport", transport.String(),
				"violations", len(f.Messages),
			)
			if len(f.Messages) > 1 {
				return n.validationEnvelope(f.Messages)
			}
			return Envelope{
				StatusCode: http.StatusBadRequest,
				Message:    f.Messages[0],
				Errors:     []string{http.StatusText(http.StatusBadRequest)},
				Timestamp:  n.now().UTC(),
			}
		}

	case *Response:
		if f != nil && f.Status != 0 {
			n.logger.Warn("response failure",
				"transport", transport.String(),
				"status", f.Status,
			)
			// A message sequence is always a validation failure, no
			// matter which type carried it.
			if len(f.Messages) > 1 {
				return n.validationEnvelope(f.Messages)
			}
			message := http.StatusText(f.Status)
			if len(f.Messages) == 1 {
				message = f.Messages[0]
			}
			label := f.Label
			if label == "" {
				label = http.StatusText(f.Status)
			}
			if label == "" {
				label = fmt.Sprintf("%T", f)
			}
			return Envelope{
				StatusCode: f.Status,
				Message:    message,
				Errors:     []string{label},
				Timestamp:  n.now().UTC(),
			}
		}
	}

	// Unclassified: log everything, expose nothing.
	n.logger.Error("unclassified failure",
		"transport", transport.String(),
		"failure", fmt.Sprintf("%v", raised),
		"type", fmt.Sprintf("%T", raised),
		"stack", string(debug.Stack()),
	)
	return Envelope{
		StatusCode: http.StatusInternalServerError,
		Message:    internalMessage,
		Errors:     []string{internalLabel},
		Timestamp:  n.now().UTC(),
	}
}

func (n *Normalizer) validationEnvelope(messages []string) Envelope {
	errs := make([]string, len(messages))
	copy(errs, messages)
	return Envelope{
		StatusCode: http.StatusBadRequest,
		Message:    validationMessage,
		Errors:     errs,
		Timestamp:  n.now().UTC(),
	}
}
