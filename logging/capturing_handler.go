package logging

import (
	"context"
	"log/slog"
)

// SubsystemKey is the attribute that decides which bucket a record is
// captured under. Records without it go to GlobalKey.
const (
	SubsystemKey = "subsystem"
	GlobalKey    = "robot"
)

// CapturingHandler wraps an slog.Handler to capture log records while passing them through.
type CapturingHandler struct {
	underlying slog.Handler  // Pass-through to actual handler
	collector  *LogCollector // Stores captured logs
	level      slog.Level    // Minimum captured level
	key        string        // Subsystem set via WithAttrs, if any
	attrs      []slog.Attr   // Attributes added via WithAttrs
	groups     []string      // Groups added via WithGroup
}

// NewCapturingHandler creates a new CapturingHandler that captures records at
// or above level to the collector while passing every record to the
// underlying handler.
func NewCapturingHandler(underlying slog.Handler, collector *LogCollector, level slog.Level) *CapturingHandler {
	return &CapturingHandler{
		underlying: underlying,
		collector:  collector,
		level:      level,
	}
}

// Enabled reports true when either the capture or the underlying handler
// wants the level. Handle filters again for each side.
func (h *CapturingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || h.underlying.Enabled(ctx, level)
}

// Handle captures the log record and then passes it to the underlying handler.
func (h *CapturingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level {
		h.capture(r)
	}
	if !h.underlying.Enabled(ctx, r.Level) {
		return nil
	}
	return h.underlying.Handle(ctx, r)
}

func (h *CapturingHandler) capture(r slog.Record) {
	entry := LogEntry{
		Time:       r.Time,
		Level:      r.Level.String(),
		Message:    r.Message,
		Attributes: make(map[string]interface{}, r.NumAttrs()+len(h.attrs)),
	}

	for _, attr := range h.attrs {
		entry.Attributes[attr.Key] = resolveValue(attr.Value)
	}

	key := h.key
	r.Attrs(func(a slog.Attr) bool {
		entry.Attributes[a.Key] = resolveValue(a.Value)
		if a.Key == SubsystemKey && len(h.groups) == 0 {
			key = a.Value.String()
		}
		return true
	})
	if key == "" {
		key = GlobalKey
	}

	h.collector.AddLog(key, entry)
}

// WithAttrs returns a new CapturingHandler with additional attributes.
// It must return a CapturingHandler, not the underlying handler, so that
// capture survives .With() chains.
func (h *CapturingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)

	key := h.key
	if len(h.groups) == 0 {
		for _, a := range attrs {
			if a.Key == SubsystemKey {
				key = a.Value.String()
			}
		}
	}

	return &CapturingHandler{
		underlying: h.underlying.WithAttrs(attrs),
		collector:  h.collector,
		level:      h.level,
		key:        key,
		attrs:      newAttrs,
		groups:     h.groups,
	}
}

// WithGroup returns a new CapturingHandler with a group name.
func (h *CapturingHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups[len(h.groups)] = name

	return &CapturingHandler{
		underlying: h.underlying.WithGroup(name),
		collector:  h.collector,
		level:      h.level,
		key:        h.key,
		attrs:      h.attrs,
		groups:     newGroups,
	}
}

// resolveValue converts a slog.Value to a JSON-serializable value.
// This handles special cases like errors which need to be converted to strings.
func resolveValue(v slog.Value) interface{} {
	v = v.Resolve()

	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindAny:
		val := v.Any()
		if err, ok := val.(error); ok {
			return err.Error()
		}
		return val
	case slog.KindGroup:
		attrs := v.Group()
		group := make(map[string]interface{}, len(attrs))
		for _, attr := range attrs {
			group[attr.Key] = resolveValue(attr.Value)
		}
		return group
	default:
		return v.Any()
	}
}
