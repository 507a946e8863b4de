package logring

import (
	"context"
	"log/slog"
)

// Handler tees slog records into a Ring while delegating to an inner
// handler for normal output.
type Handler struct {
	inner slog.Handler
	ring  *Ring
	bound []slog.Attr
	scope string
}

// NewHandler wraps inner so every record is also captured in ring. The
// ring captures all levels; the inner handler keeps its own level filter.
func NewHandler(inner slog.Handler, ring *Ring) *Handler {
	return &Handler{inner: inner, ring: ring}
}

func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.bound)+r.NumAttrs())
	for _, a := range h.bound {
		attrs[h.scope+a.Key] = flatten(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.scope+a.Key] = flatten(a.Value)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}

	h.ring.add(Record{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
		lvl:     r.Level,
	})

	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		inner: h.inner.WithAttrs(attrs),
		ring:  h.ring,
		bound: append(h.bound[:len(h.bound):len(h.bound)], attrs...),
		scope: h.scope,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner: h.inner.WithGroup(name),
		ring:  h.ring,
		bound: h.bound,
		scope: h.scope + name + ".",
	}
}

// flatten resolves slog values into JSON-safe types. Errors become their
// message string so they don't marshal to {}.
func flatten(v slog.Value) any {
	v = v.Resolve()
	raw := v.Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}
