// Package errlog accumulates the data-quality problems found while a single
// patient is transformed. Entries are human readable and end up in the
// migration error report; they never stop the transformation.
package errlog

import (
	"fmt"
	"time"
)

// DateLayout is the format used for dates embedded in error messages.
const DateLayout = "2006-01-02"

// Log is a per-patient error accumulator. It is not safe for concurrent use;
// each patient is owned by exactly one worker.
type Log struct {
	entries []string
}

// New returns an empty Log.
func New() *Log {
	return &Log{}
}

// Add appends a message.
func (l *Log) Add(msg string) {
	l.entries = append(l.entries, msg)
}

// Addf appends a formatted message.
func (l *Log) Addf(format string, args ...interface{}) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Missing records "Missing <field> on <date>".
func (l *Log) Missing(field string, on time.Time) {
	l.Addf("Missing %s on %s", field, FormatDate(on))
}

// Invalid records an unrecognised source value.
func (l *Log) Invalid(field, value string, on time.Time) {
	l.Addf("Invalid %s '%s' on %s", field, value, FormatDate(on))
}

// Entries returns a copy of the accumulated messages.
func (l *Log) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of accumulated messages.
func (l *Log) Len() int { return len(l.entries) }

// Empty reports whether nothing was recorded.
func (l *Log) Empty() bool { return len(l.entries) == 0 }

// FormatDate renders t the way error messages expect it.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "unknown date"
	}
	return t.Format(DateLayout)
}
