// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"log/slog"
	"time"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSource is the key for the provider or task tag a request belongs to.
	FieldSource = "source"
	// FieldPaperID is the key for canonical paper identifiers.
	FieldPaperID = "paper_id"
	// FieldQuery is the key for search queries.
	FieldQuery = "query"
	// FieldTask is the key for enrichment task names.
	FieldTask = "task"
	// FieldAttempt is the key for 1-based retry attempts.
	FieldAttempt = "attempt"
)

type Attr = slog.Attr

func Any(key string, value any) Attr { return slog.Any(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Source(name string) Attr { return slog.String(FieldSource, name) }

func PaperID(id string) Attr { return slog.String(FieldPaperID, id) }

func Query(q string) Attr { return slog.String(FieldQuery, q) }

func Task(name string) Attr { return slog.String(FieldTask, name) }

func Attempt(n int) Attr { return slog.Int(FieldAttempt, n) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Args converts attributes into the variadic form slog methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}
