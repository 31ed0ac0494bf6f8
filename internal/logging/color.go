package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiRed    = "\033[31m"
	ansiCyan   = "\033[36m"
	ansiBlue   = "\033[34m"
)

// ColorHandler is a human-oriented slog handler for terminals. Output
// is one line per record: dimmed time, level colored by severity, the
// message, then key=value attributes.
type ColorHandler struct {
	opts  *slog.HandlerOptions
	out   io.Writer
	attrs []slog.Attr
	mu    *sync.Mutex
}

// NewColorHandler creates a colored handler writing to out.
func NewColorHandler(out io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &ColorHandler{opts: opts, out: out, mu: &sync.Mutex{}}
}

func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	level := ansiGreen
	switch r.Level {
	case slog.LevelDebug:
		level = ansiBlue
	case slog.LevelWarn:
		level = ansiYellow
	case slog.LevelError:
		level = ansiRed
	}

	_, _ = fmt.Fprintf(h.out, "%s%s%s %s%-5s%s %s",
		ansiDim, r.Time.Format("15:04:05"), ansiReset,
		level, r.Level.String(), ansiReset,
		r.Message)

	write := func(a slog.Attr) {
		_, _ = fmt.Fprintf(h.out, " %s%s=%s%v%s", ansiDim, a.Key, ansiCyan, a.Value, ansiReset)
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})

	_, _ = fmt.Fprintln(h.out)
	return nil
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{
		opts:  h.opts,
		out:   h.out,
		attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		mu:    h.mu,
	}
}

func (h *ColorHandler) WithGroup(string) slog.Handler {
	// Groups are not rendered; attributes stay flat.
	return h
}
