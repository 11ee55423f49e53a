// Package regimen infers the concrete drugs behind an eMastercard regimen
// code for a patient of a given weight.
package regimen

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/emastercard-migration/internal/domain/nart"
	"github.com/ehr/emastercard-migration/internal/domain/reference"
	"github.com/ehr/emastercard-migration/internal/transform/errlog"
)

var codePattern = regexp.MustCompile(`(\d+)([AP])`)

// Code is a parsed regimen code such as 4A: index 4, category A (adult).
type Code struct {
	Index    int
	Category string
}

// Parse extracts the index and category from a regimen code.
func Parse(raw string) (Code, bool) {
	m := codePattern.FindStringSubmatch(strings.ToUpper(raw))
	if m == nil {
		return Code{}, false
	}
	idx, err := strconv.Atoi(m[1])
	if err != nil {
		return Code{}, false
	}
	return Code{Index: idx, Category: m[2]}, true
}

// Legacy reports whether the index predates weight banded regimens.
func (c Code) Legacy() bool {
	return c.Index == 1 || c.Index == 3
}

// legacyDrug maps the retired regimens to a single fixed drug.
func legacyDrug(c Code) int {
	switch {
	case c.Index == 1 && c.Category == "A":
		return 613
	case c.Index == 1 && c.Category == "P":
		return 72
	default:
		return 955
	}
}

// Engine resolves regimen codes against the reference tables. It holds no
// mutable state and may be shared by all workers.
type Engine struct {
	lookup reference.Lookup
	logger zerolog.Logger
}

func NewEngine(lookup reference.Lookup, logger zerolog.Logger) *Engine {
	return &Engine{lookup: lookup, logger: logger}
}

// ARVs returns the ARV drugs prescribed under regimen for a patient of
// weight. Problems with the source data are recorded on errs and yield an
// empty prescription.
func (e *Engine) ARVs(regimen *string, weight *float64, date time.Time, errs *errlog.Log) []int {
	if regimen == nil || strings.TrimSpace(*regimen) == "" {
		errs.Missing("art_regimen", date)
		return nil
	}
	name := strings.TrimSpace(*regimen)
	if strings.EqualFold(name, "Other") {
		return []int{nart.DrugUnknownARV}
	}

	code, ok := Parse(name)
	if !ok {
		errs.Addf("Invalid regimen name '%s' on %s", name, errlog.FormatDate(date))
		return nil
	}
	if code.Legacy() {
		return []int{legacyDrug(code)}
	}

	if weight == nil {
		known := Combinations(code.Index)
		if len(known) == 0 {
			errs.Addf("Non standard regimen %s on %s", name, errlog.FormatDate(date))
			return nil
		}
		e.logger.Warn().Str("regimen", name).
			Msgf("patient weight not available, choosing first combination of regimen %d", code.Index)
		return known[0]
	}

	drugs := e.lookup.RegimenIngredients(code.Index, *weight)
	if len(drugs) == 0 {
		errs.Addf("Non standard regimen %s for patient of weight %s on %s",
			name, formatWeight(*weight), errlog.FormatDate(date))
		return nil
	}

	found := FormCombinations(code.Index, drugs)
	switch {
	case len(found) == 0:
		errs.Addf("Unrecognised drug combination %v for regimen %s at weight %s on %s",
			drugs, name, formatWeight(*weight), errlog.FormatDate(date))
		return nil
	case len(found) > 1:
		e.logger.Warn().
			Str("regimen", name).
			Float64("weight", *weight).
			Interface("combinations", found).
			Msg("multiple drug combinations match regimen, using the first")
	}
	return found[0]
}

// CPT returns the cotrimoxazole drug for a patient of weight. Without a
// weight the first known CPT drug is used.
func (e *Engine) CPT(weight *float64, date time.Time, errs *errlog.Log) (int, bool) {
	if weight == nil {
		ids := e.lookup.CPTDrugIDs()
		if len(ids) == 0 {
			errs.Addf("No CPT drug available on %s", errlog.FormatDate(date))
			return 0, false
		}
		return ids[0], true
	}
	id, ok := e.lookup.CPTDrug(*weight)
	if !ok {
		errs.Addf("No CPT drug for patient of weight %s on %s", formatWeight(*weight), errlog.FormatDate(date))
		return 0, false
	}
	return id, true
}

// Dose returns the weight banded dose of drugID; unknown without a weight.
func (e *Engine) Dose(drugID int, weight *float64) (reference.Dose, bool) {
	if weight == nil {
		return reference.Dose{}, false
	}
	return e.lookup.Dose(drugID, *weight)
}

// DrugConcept resolves the concept a drug order is filed under. Drugs
// missing from the drug table fall back to the unknown ARV concept.
func (e *Engine) DrugConcept(drugID int) int {
	if c, ok := e.lookup.DrugConcept(drugID); ok {
		return c
	}
	return nart.ConceptUnknownARV
}

// IsCPT reports whether drugID is a cotrimoxazole drug.
func (e *Engine) IsCPT(drugID int) bool {
	return e.lookup.IsCPT(drugID)
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}
