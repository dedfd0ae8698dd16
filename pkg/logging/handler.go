// Package logging provides the line-oriented slog handler used by the bake CLI and server.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jba/slog/withsupport"
)

// Options configure a Handler
type Options struct {
	// Level reports the minimum level to log.
	// If nil, the Handler uses slog.LevelInfo.
	Level slog.Leveler
	// Prefix is written in brackets at the start of every line
	Prefix string
	// Time includes a timestamp at the start of every line
	Time bool
}

// Handler writes one line per record:
//
//	[prefix] 15:04:05 INFO message key=value group.key=value
type Handler struct {
	opts Options
	with *withsupport.GroupOrAttrs

	mu  *sync.Mutex
	out io.Writer
}

// NewHandler creates a handler writing to out
func NewHandler(out io.Writer, opts *Options) *Handler {
	h := &Handler{out: out, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

// New returns a logger backed by a Handler
func New(out io.Writer, opts *Options) *slog.Logger {
	return slog.New(NewHandler(out, opts))
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return New(io.Discard, &Options{Level: slog.Level(100)})
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{opts: h.opts, with: h.with.WithGroup(name), mu: h.mu, out: h.out}
}

func (h *Handler) WithAttrs(as []slog.Attr) slog.Handler {
	return &Handler{opts: h.opts, with: h.with.WithAttrs(as), mu: h.mu, out: h.out}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var b strings.Builder
	if h.opts.Prefix != "" {
		b.WriteString("[" + h.opts.Prefix + "] ")
	}
	if h.opts.Time && !r.Time.IsZero() {
		b.WriteString(r.Time.Format(time.TimeOnly))
		b.WriteByte(' ')
	}
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)

	groups := h.with.Apply(func(groups []string, a slog.Attr) {
		writeAttr(&b, groups, a)
	})
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, groups, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func writeAttr(b *strings.Builder, groups []string, a slog.Attr) {
	// Resolve the Attr's value before doing anything else.
	a.Value = a.Value.Resolve()
	// Ignore empty Attrs.
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return
		}
		// Groups with empty keys are inlined into their parents.
		if a.Key != "" {
			groups = append(groups[:len(groups):len(groups)], a.Key)
		}
		for _, ga := range attrs {
			writeAttr(b, groups, ga)
		}
		return
	}

	b.WriteByte(' ')
	for _, g := range groups {
		b.WriteString(g)
		b.WriteByte('.')
	}
	b.WriteString(a.Key)
	b.WriteByte('=')

	var value string
	if a.Value.Kind() == slog.KindTime {
		// Write times in a standard way, without the monotonic time.
		value = a.Value.Time().Format(time.RFC3339Nano)
	} else {
		value = a.Value.String()
	}
	if strings.ContainsAny(value, " \t\n\"=") {
		value = `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
	}
	b.WriteString(value)
}

// ParseLevel maps "debug", "info", "warn", "error" to slog levels
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}
