// Package reporting persists the outcome of a migration run: the YAML
// error report, which doubles as the resume point of the next run, and the
// CSV list of patients that had no clinical visits.
package reporting

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Summary is the head of the error report. TotalProcessed counts the
// leading source patients that are all done; CompletedAhead lists the
// source ids of patients past that point that were migrated anyway and
// must not be loaded again.
type Summary struct {
	TotalProcessed  int     `yaml:"total_patients_processed"`
	TotalWithErrors int     `yaml:"total_patients_with_errors"`
	CompletedAhead  []int64 `yaml:"patients_completed_ahead,omitempty"`
}

// Report is a run's progress and the data-quality errors of every patient
// that had any, keyed by patient tag.
type Report struct {
	Summary
	Errors map[string][]string
}

// ErrorsPath is where a site's error report lives.
func ErrorsPath(dir, site string) string {
	return filepath.Join(dir, strings.ToLower(site)+"-migration-errors.yaml")
}

// MissingVisitsPath is where a site's missing-visits report lives.
func MissingVisitsPath(dir, site string) string {
	return filepath.Join(dir, strings.ToLower(site)+"-migration-missing-visits.csv")
}

// WriteErrors writes the summary lines followed by the error map as a
// second YAML document. TotalWithErrors is taken from errs.
func WriteErrors(path string, summary Summary, errs map[string][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create error report: %w", err)
	}
	defer f.Close()

	if errs == nil {
		errs = map[string][]string{}
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	summary.TotalWithErrors = len(errs)
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := enc.Encode(errs); err != nil {
		return fmt.Errorf("write errors: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

// ReadErrors loads a report written by WriteErrors. A missing file is an
// empty report, ie a fresh start.
func ReadErrors(path string) (Report, error) {
	report := Report{Errors: map[string][]string{}}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return report, nil
	}
	if err != nil {
		return report, fmt.Errorf("open error report: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&report.Summary); err != nil {
		if errors.Is(err, io.EOF) {
			return report, nil
		}
		return report, fmt.Errorf("read summary: %w", err)
	}
	if err := dec.Decode(&report.Errors); err != nil && !errors.Is(err, io.EOF) {
		return report, fmt.Errorf("read errors: %w", err)
	}
	if report.Errors == nil {
		report.Errors = map[string][]string{}
	}
	return report, nil
}

// WriteMissingVisits writes one patient tag per row.
func WriteMissingVisits(path string, tags []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create missing visits report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, tag := range tags {
		if err := w.Write([]string{tag}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// ReadMissingVisits returns the tags of a previous run, or nothing when
// there is no report.
func ReadMissingVisits(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open missing visits report: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read missing visits report: %w", err)
	}
	tags := make([]string, 0, len(records))
	for _, rec := range records {
		if len(rec) > 0 && rec[0] != "" {
			tags = append(tags, rec[0])
		}
	}
	return tags, nil
}

var (
	errorDate   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	regimenWord = regexp.MustCompile(`(?i)regimen`)
)

// RegimenError is a regimen problem recorded on a patient's last visit.
type RegimenError struct {
	Tag   string
	Error string
}

// RegimenErrors finds, per patient, the latest date mentioned by any error
// within [from, to] and returns the regimen errors on that date. Results
// are ordered by tag.
func RegimenErrors(errs map[string][]string, from, to time.Time) []RegimenError {
	lo, hi := from.Format("2006-01-02"), to.Format("2006-01-02")

	tags := make([]string, 0, len(errs))
	for tag := range errs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var out []RegimenError
	for _, tag := range tags {
		var last string
		for _, e := range errs[tag] {
			for _, d := range errorDate.FindAllString(e, -1) {
				if d >= lo && d <= hi && d > last {
					last = d
				}
			}
		}
		if last == "" {
			continue
		}
		for _, e := range errs[tag] {
			if regimenWord.MatchString(e) && strings.Contains(e, last) {
				out = append(out, RegimenError{Tag: tag, Error: e})
			}
		}
	}
	return out
}
