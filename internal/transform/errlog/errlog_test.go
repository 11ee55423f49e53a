package errlog

import (
	"testing"
	"time"
)

func TestLog_Messages(t *testing.T) {
	l := New()
	if !l.Empty() {
		t.Fatal("expected a new log to be empty")
	}

	on := time.Date(2020, 3, 4, 10, 0, 0, 0, time.UTC)
	l.Missing("weight", on)
	l.Invalid("outcome", "XX", on)
	l.Addf("Unknown drug %d", 42)
	l.Add("Missing gender")

	want := []string{
		"Missing weight on 2020-03-04",
		"Invalid outcome 'XX' on 2020-03-04",
		"Unknown drug 42",
		"Missing gender",
	}
	got := l.Entries()
	if l.Len() != len(want) || len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestLog_EntriesIsACopy(t *testing.T) {
	l := New()
	l.Add("a")
	got := l.Entries()
	got[0] = "b"
	if l.Entries()[0] != "a" {
		t.Error("expected Entries to return a copy")
	}
}

func TestFormatDate_Zero(t *testing.T) {
	if got := FormatDate(time.Time{}); got != "unknown date" {
		t.Errorf("expected 'unknown date', got %q", got)
	}
}
