// Package encounters turns eMastercard visits into NART encounters. Every
// transformer is a pure function of the preloaded source patient; data
// problems go to the patient's errlog and the affected observation is left
// out.
package encounters

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/transform/regimen"
)

// AgeUnit selects how ages are compared against the adult and pediatric
// thresholds.
type AgeUnit string

const (
	AgeInYears AgeUnit = "years"
	// AgeInDays compares the raw day count against the thresholds, which
	// reproduces eMastercard's reports.
	AgeInDays AgeUnit = "days"
)

// AgePolicy decides who counts as an adult (height follow-up) and who as a
// pediatric patient (WHO stage 3 split).
type AgePolicy struct {
	Unit      AgeUnit
	Adult     int
	Pediatric int
}

// DefaultAgePolicy uses years, 18 for adults and 14 for pediatric staging.
func DefaultAgePolicy() AgePolicy {
	return AgePolicy{Unit: AgeInYears, Adult: 18, Pediatric: 14}
}

// Age returns the age at the given moment in the policy's unit.
func (p AgePolicy) Age(birthdate, at time.Time) int {
	if p.Unit == AgeInDays {
		return int(at.Sub(birthdate).Hours() / 24)
	}
	years := at.Year() - birthdate.Year()
	if at.Month() < birthdate.Month() || at.Month() == birthdate.Month() && at.Day() < birthdate.Day() {
		years--
	}
	return years
}

// IsAdult is true once the age is above the adult threshold. An unknown
// birthdate counts as adult.
func (p AgePolicy) IsAdult(birthdate *time.Time, at time.Time) bool {
	if birthdate == nil {
		return true
	}
	return p.Age(*birthdate, at) > p.Adult
}

// IsPediatric is true below the pediatric threshold. An unknown birthdate
// is not pediatric.
func (p AgePolicy) IsPediatric(birthdate *time.Time, at time.Time) bool {
	if birthdate == nil {
		return false
	}
	return p.Age(*birthdate, at) < p.Pediatric
}

// Accessions hands out lab accession numbers. One instance is shared by
// every worker of a run.
type Accessions struct {
	last atomic.Int64
}

// NewAccessions continues numbering after seed, usually the highest
// accession number already in the target database.
func NewAccessions(seed int64) *Accessions {
	a := &Accessions{}
	a.last.Store(seed)
	return a
}

// Next returns "<site>-<n>" with n unique across the run.
func (a *Accessions) Next(site string) string {
	return fmt.Sprintf("%s-%d", site, a.last.Add(1))
}

// Last returns the most recently issued number.
func (a *Accessions) Last() int64 {
	return a.last.Load()
}

// Session is the per-run context shared by all transformers.
type Session struct {
	Regimens   *regimen.Engine
	Accessions *Accessions
	SiteCode   string
	Ages       AgePolicy
	Logger     zerolog.Logger
}

// retro truncates t to the start of its day; migrated encounters are
// retrospective entries without a meaningful time of day.
func retro(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func coded(conceptID int, at time.Time, value int) nart.Observation {
	return nart.Observation{ConceptID: conceptID, ObsDatetime: at, Value: nart.Coded(value)}
}

func numeric(conceptID int, at time.Time, value float64) nart.Observation {
	return nart.Observation{ConceptID: conceptID, ObsDatetime: at, Value: nart.Numeric(value)}
}

func datetime(conceptID int, at time.Time, value time.Time) nart.Observation {
	return nart.Observation{ConceptID: conceptID, ObsDatetime: at, Value: nart.Datetime(value)}
}

func yesNo(b bool) int {
	if b {
		return nart.ConceptYes
	}
	return nart.ConceptNo
}
