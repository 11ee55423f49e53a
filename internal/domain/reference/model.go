package reference

import "github.com/shopspring/decimal"

// Regimen maps to moh_regimens.
type Regimen struct {
	RegimenID    int `db:"regimen_id" json:"regimen_id"`
	RegimenIndex int `db:"regimen_index" json:"regimen_index"`
}

// Ingredient maps to moh_regimen_ingredient joined with its dose from
// moh_regimen_doses. Weight bounds are inclusive.
type Ingredient struct {
	RegimenID int                 `db:"regimen_id" json:"regimen_id"`
	DrugID    int                 `db:"drug_inventory_id" json:"drug_inventory_id"`
	MinWeight decimal.NullDecimal `db:"min_weight" json:"min_weight"`
	MaxWeight decimal.NullDecimal `db:"max_weight" json:"max_weight"`
	DoseAM    *float64            `db:"am" json:"am,omitempty"`
	DosePM    *float64            `db:"pm" json:"pm,omitempty"`
}

// Drug maps to the drug table.
type Drug struct {
	DrugID    int  `db:"drug_id" json:"drug_id"`
	ConceptID int  `db:"concept_id" json:"concept_id"`
	Retired   bool `db:"retired" json:"retired"`
}

// Dose is the morning and evening pill count for a drug in a weight band.
type Dose struct {
	AM float64 `json:"am"`
	PM float64 `json:"pm"`
}

// Daily returns the equivalent daily dose.
func (d Dose) Daily() float64 {
	return d.AM + d.PM
}
