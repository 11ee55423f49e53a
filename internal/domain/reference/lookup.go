// Package reference holds the NART regimen, dose and drug tables the
// regimen inference works against.
package reference

import (
	"github.com/shopspring/decimal"
)

// CotrimoxazoleConceptID is the concept every CPT drug is filed under.
const CotrimoxazoleConceptID = 916

// Lookup resolves regimen ingredients, doses and drug concepts by weight band.
// Implementations must be safe for concurrent reads.
type Lookup interface {
	// RegimenIngredients returns the drugs of the regimen with the given
	// index whose weight band contains weight, in table order.
	RegimenIngredients(regimenIndex int, weight float64) []int
	Dose(drugID int, weight float64) (Dose, bool)
	DrugConcept(drugID int) (int, bool)
	// CPTDrugIDs returns the non-retired cotrimoxazole drugs.
	CPTDrugIDs() []int
	// CPTDrug returns the first CPT drug prescribed to patients of weight.
	CPTDrug(weight float64) (int, bool)
	IsCPT(drugID int) bool
}

// Tables is an in-memory Lookup. It is built once and never mutated, so any
// number of workers may read from it without locking.
type Tables struct {
	regimens     map[int]int // regimen_index -> regimen_id
	ingredients  []Ingredient
	drugConcepts map[int]int
	cptDrugs     []int
	cptSet       map[int]struct{}
}

// NewTables indexes the raw reference rows. When an index maps to several
// regimens the first one wins, matching a plain lookup by index.
func NewTables(regimens []Regimen, ingredients []Ingredient, drugs []Drug) *Tables {
	t := &Tables{
		regimens:     make(map[int]int, len(regimens)),
		ingredients:  append([]Ingredient(nil), ingredients...),
		drugConcepts: make(map[int]int, len(drugs)),
		cptSet:       make(map[int]struct{}),
	}
	for _, r := range regimens {
		if _, ok := t.regimens[r.RegimenIndex]; !ok {
			t.regimens[r.RegimenIndex] = r.RegimenID
		}
	}
	for _, d := range drugs {
		t.drugConcepts[d.DrugID] = d.ConceptID
		if d.ConceptID == CotrimoxazoleConceptID && !d.Retired {
			t.cptDrugs = append(t.cptDrugs, d.DrugID)
			t.cptSet[d.DrugID] = struct{}{}
		}
	}
	return t
}

// InBand reports whether weight falls inside [min, max] once all three are
// rounded to one decimal place. A missing bound is open.
func InBand(weight float64, min, max decimal.NullDecimal) bool {
	w := decimal.NewFromFloat(weight).Round(1)
	if min.Valid && w.LessThan(min.Decimal.Round(1)) {
		return false
	}
	if max.Valid && w.GreaterThan(max.Decimal.Round(1)) {
		return false
	}
	return true
}

func (t *Tables) RegimenIngredients(regimenIndex int, weight float64) []int {
	regimenID, ok := t.regimens[regimenIndex]
	if !ok {
		return nil
	}
	var drugs []int
	for _, in := range t.ingredients {
		if in.RegimenID == regimenID && InBand(weight, in.MinWeight, in.MaxWeight) {
			drugs = append(drugs, in.DrugID)
		}
	}
	return drugs
}

func (t *Tables) Dose(drugID int, weight float64) (Dose, bool) {
	for _, in := range t.ingredients {
		if in.DrugID != drugID || in.DoseAM == nil && in.DosePM == nil {
			continue
		}
		if !InBand(weight, in.MinWeight, in.MaxWeight) {
			continue
		}
		var d Dose
		if in.DoseAM != nil {
			d.AM = *in.DoseAM
		}
		if in.DosePM != nil {
			d.PM = *in.DosePM
		}
		return d, true
	}
	return Dose{}, false
}

func (t *Tables) DrugConcept(drugID int) (int, bool) {
	c, ok := t.drugConcepts[drugID]
	return c, ok
}

func (t *Tables) CPTDrugIDs() []int {
	return append([]int(nil), t.cptDrugs...)
}

func (t *Tables) CPTDrug(weight float64) (int, bool) {
	for _, in := range t.ingredients {
		if _, ok := t.cptSet[in.DrugID]; ok && InBand(weight, in.MinWeight, in.MaxWeight) {
			return in.DrugID, true
		}
	}
	return 0, false
}

func (t *Tables) IsCPT(drugID int) bool {
	_, ok := t.cptSet[drugID]
	return ok
}
