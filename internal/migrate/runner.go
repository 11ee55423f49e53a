// Package migrate drives a migration run: it pages through the eMastercard
// patients, transforms each one on a bounded pool of workers and hands the
// result to the NART loader, keeping the progress and error report that a
// later run resumes from.
package migrate

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ehr/emastercard-migration/internal/domain/emastercard"
	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/domain/reference"
	"github.com/ehr/emastercard-migration/internal/platform/reporting"
	"github.com/ehr/emastercard-migration/internal/transform/encounters"
	"github.com/ehr/emastercard-migration/internal/transform/patient"
	"github.com/ehr/emastercard-migration/internal/transform/regimen"
	"github.com/ehr/emastercard-migration/pkg/pagination"
)

// Options tune a run.
type Options struct {
	SiteCode  string
	Workers   int
	BatchSize int
	// Limit caps the number of patients migrated by this run; 0 means all.
	Limit     int
	ReportDir string
	Ages      encounters.AgePolicy
}

// Progress is a point-in-time view of a run. Processed is the resume
// point: every source patient before it is done.
type Progress struct {
	Total      int  `json:"total_patients"`
	Processed  int  `json:"total_patients_processed"`
	WithErrors int  `json:"total_patients_with_errors"`
	Running    bool `json:"running"`
}

type Runner struct {
	reader emastercard.Reader
	loader nart.Loader
	lookup reference.Lookup
	opts   Options
	logger zerolog.Logger

	mu            sync.Mutex
	total         int
	base          int
	done          int
	ahead         map[int]int64
	skip          map[int64]bool
	errors        map[string][]string
	missingVisits []string
	running       bool
}

func NewRunner(reader emastercard.Reader, loader nart.Loader, lookup reference.Lookup, opts Options, logger zerolog.Logger) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Runner{
		reader: reader,
		loader: loader,
		lookup: lookup,
		opts:   opts,
		logger: logger,
		ahead:  map[int]int64{},
		skip:   map[int64]bool{},
		errors: map[string][]string{},
	}
}

// Snapshot returns the current progress. It is safe to call while Run is
// in flight.
func (r *Runner) Snapshot() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Progress{Total: r.total, Processed: r.base + r.done, WithErrors: len(r.errors), Running: r.running}
}

// Errors returns a copy of the error map.
func (r *Runner) Errors() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.errors))
	for k, v := range r.errors {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Run migrates every patient not migrated by a previous run. Data problems
// and patients that cannot be transformed are reported and skipped; a
// failure to read the source or to write NART stops the run. The reports
// are written however the run ends.
func (r *Runner) Run(ctx context.Context) (err error) {
	if err := r.resume(); err != nil {
		return err
	}
	r.setRunning(true)
	defer func() {
		r.setRunning(false)
		if werr := r.writeReports(); werr != nil && err == nil {
			err = werr
		}
	}()

	total, err := r.reader.CountPatients(ctx)
	if err != nil {
		return fmt.Errorf("count patients: %w", err)
	}
	r.mu.Lock()
	r.total = total
	r.mu.Unlock()

	if err := r.loader.SaveSitePrefix(ctx, r.opts.SiteCode); err != nil {
		return fmt.Errorf("save site prefix: %w", err)
	}
	lastAccession, err := r.loader.MaxAccession(ctx, r.opts.SiteCode)
	if err != nil {
		return fmt.Errorf("read last accession number: %w", err)
	}

	accessions := encounters.NewAccessions(lastAccession)
	assembler := patient.NewAssembler(&encounters.Session{
		Regimens:   regimen.NewEngine(r.lookup, r.logger),
		Accessions: accessions,
		SiteCode:   r.opts.SiteCode,
		Ages:       r.opts.Ages,
		Logger:     r.logger,
	})

	start := r.Snapshot().Processed
	r.logger.Info().Int("from", start).Int("total", total).Int("workers", r.opts.Workers).Int64("last_accession", lastAccession).Msg("migration started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	readErr := r.schedule(gctx, g, assembler, pagination.New(start, r.opts.BatchSize))
	if err := g.Wait(); err != nil {
		return err
	}
	if readErr != nil {
		return readErr
	}

	p := r.Snapshot()
	r.logger.Info().Int("processed", p.Processed).Int("with_errors", p.WithErrors).Int64("last_accession", accessions.Last()).Msg("migration finished")
	return nil
}

// schedule numbers patients by their position after the resume point so
// completions can be folded into a contiguous count.
func (r *Runner) schedule(ctx context.Context, g *errgroup.Group, a *patient.Assembler, page pagination.Params) error {
	seq, scheduled := 0, 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		rows, err := r.reader.ReadPatients(ctx, page)
		if err != nil {
			return fmt.Errorf("read patients at offset %d: %w", page.Offset, err)
		}
		for _, row := range rows {
			if r.migrated(row.PatientID) {
				r.complete(seq, row.PatientID)
				seq++
				continue
			}
			if r.opts.Limit > 0 && scheduled >= r.opts.Limit {
				return nil
			}
			row, n := row, seq
			g.Go(func() error {
				return r.migrate(ctx, a, n, row)
			})
			seq++
			scheduled++
		}
		if !page.HasNext(len(rows)) {
			return nil
		}
		page = page.Next()
	}
}

func (r *Runner) migrate(ctx context.Context, a *patient.Assembler, seq int, row emastercard.PatientRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := emastercard.Load(ctx, r.reader, row)
	if err != nil {
		return err
	}

	out, err := a.Assemble(src)
	if err != nil {
		tag := a.Tag(src)
		r.logger.Error().Err(err).Int64("patient_id", row.PatientID).Str("tag", tag).Msg("patient not migrated")
		r.record(tag, []string{err.Error()}, false)
		r.complete(seq, row.PatientID)
		return nil
	}

	if err := r.loader.Load(ctx, out); err != nil {
		return fmt.Errorf("load patient %d: %w", row.PatientID, err)
	}
	r.record(out.Tag(), out.Errors, out.MissingVisits())
	r.complete(seq, row.PatientID)
	return nil
}

func (r *Runner) record(tag string, errs []string, missingVisits bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(errs) > 0 {
		r.errors[tag] = errs
	}
	if missingVisits {
		r.missingVisits = append(r.missingVisits, tag)
	}
}

// complete marks the patient at seq done and advances the contiguous count
// over every patient already finished behind it.
func (r *Runner) complete(seq int, patientID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.done {
		r.ahead[seq] = patientID
		return
	}
	r.done++
	for {
		if _, ok := r.ahead[r.done]; !ok {
			return
		}
		delete(r.ahead, r.done)
		r.done++
	}
}

func (r *Runner) migrated(patientID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skip[patientID]
}

func (r *Runner) setRunning(running bool) {
	r.mu.Lock()
	r.running = running
	r.mu.Unlock()
}

func (r *Runner) resume() error {
	previous, err := reporting.ReadErrors(reporting.ErrorsPath(r.opts.ReportDir, r.opts.SiteCode))
	if err != nil {
		return fmt.Errorf("read previous report: %w", err)
	}
	var missing []string
	if previous.TotalProcessed > 0 || len(previous.CompletedAhead) > 0 {
		missing, err = reporting.ReadMissingVisits(reporting.MissingVisitsPath(r.opts.ReportDir, r.opts.SiteCode))
		if err != nil {
			return fmt.Errorf("read previous missing visits: %w", err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.base = previous.TotalProcessed
	r.done = 0
	r.ahead = map[int]int64{}
	r.skip = make(map[int64]bool, len(previous.CompletedAhead))
	for _, id := range previous.CompletedAhead {
		r.skip[id] = true
	}
	r.errors = previous.Errors
	r.missingVisits = missing
	return nil
}

func (r *Runner) writeReports() error {
	errs := r.Errors()
	r.mu.Lock()
	summary := reporting.Summary{TotalProcessed: r.base + r.done}
	for _, id := range r.ahead {
		summary.CompletedAhead = append(summary.CompletedAhead, id)
	}
	missing := append([]string(nil), r.missingVisits...)
	r.mu.Unlock()
	sort.Slice(summary.CompletedAhead, func(i, j int) bool { return summary.CompletedAhead[i] < summary.CompletedAhead[j] })

	r.logger.Info().Int("processed", summary.TotalProcessed).Int("completed_ahead", len(summary.CompletedAhead)).Int("with_errors", len(errs)).Msg("writing migration reports")
	if err := reporting.WriteErrors(reporting.ErrorsPath(r.opts.ReportDir, r.opts.SiteCode), summary, errs); err != nil {
		return err
	}
	return reporting.WriteMissingVisits(reporting.MissingVisitsPath(r.opts.ReportDir, r.opts.SiteCode), missing)
}
