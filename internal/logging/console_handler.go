package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// highlightRank orders the fields shown on info lines; unlisted keys follow in
// emission order.
var highlightRank = func() map[string]int {
	keys := []string{
		FieldEventType, FieldErrorKind, FieldErrorHint, FieldImpact, "error",
		"input", "output", "chunks", "processed", "failed", "attempt", "status",
		"backend", "model", "url", "stage_duration", "bytes",
	}
	rank := make(map[string]int, len(keys))
	for i, key := range keys {
		rank[key] = i
	}
	return rank
}()

// maxInfoFields bounds the trailing key=value pairs on info and above.
const maxInfoFields = 8

// field is a flattened attribute; group names are joined with dots.
type field struct {
	key   string
	value slog.Value
}

// consoleHandler writes one line per record:
//
//	2026-01-02T15:04:05Z INFO  [pipeline] run=0123abcd stage=stage1_infer: stage completed  event_type=stage_complete
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     *slog.LevelVar
	prefix    string
	fields    []field
	addSource bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append([]field(nil), h.fields...)
	for _, attr := range attrs {
		next.fields = appendField(next.fields, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := append([]field(nil), h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})
	fields = lastWins(fields)

	var component, runID, stage, sourceID string
	extras := fields[:0:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = attrString(f.value)
		case FieldRunID:
			runID = attrString(f.value)
		case FieldStage:
			stage = attrString(f.value)
		case FieldSourceID:
			sourceID = attrString(f.value)
		default:
			extras = append(extras, f)
		}
	}

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if component != "" {
		buf.WriteString(" [" + component + "]")
	}
	if len(runID) > 8 {
		runID = runID[:8]
	}
	for _, part := range []field{
		{key: "run", value: slog.StringValue(runID)},
		{key: "stage", value: slog.StringValue(stage)},
		{key: "source", value: slog.StringValue(sourceID)},
	} {
		if s := strings.TrimSpace(part.value.String()); s != "" {
			buf.WriteString(" " + part.key + "=" + s)
		}
	}
	buf.WriteString(": ")
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(msg)

	hidden := 0
	if record.Level >= slog.LevelInfo {
		sortByHighlight(extras)
		if len(extras) > maxInfoFields {
			hidden = len(extras) - maxInfoFields
			extras = extras[:maxInfoFields]
		}
	}
	for i, f := range extras {
		if i == 0 {
			buf.WriteString("  ")
		} else {
			buf.WriteByte(' ')
		}
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(f.value))
	}
	if hidden > 0 {
		buf.WriteString(" (+" + strconv.Itoa(hidden) + " more)")
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" at " + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line))
		}
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func appendField(dst []field, prefix string, attr slog.Attr) []field {
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, a := range attr.Value.Group() {
			dst = appendField(dst, inner, a)
		}
		return dst
	}
	if attr.Key == "" {
		return dst
	}
	return append(dst, field{key: prefix + attr.Key, value: attr.Value})
}

// lastWins keeps the first position of each key with its final value.
func lastWins(fields []field) []field {
	index := make(map[string]int, len(fields))
	out := fields[:0:0]
	for _, f := range fields {
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func sortByHighlight(fields []field) {
	sort.SliceStable(fields, func(i, j int) bool {
		ri, iok := highlightRank[fields[i].key]
		rj, jok := highlightRank[fields[j].key]
		switch {
		case iok && jok:
			return ri < rj
		default:
			return iok && !jok
		}
	})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
