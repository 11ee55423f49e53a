package reference

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Load reads the reference tables from the NART database. Any failure here
// leaves the run without regimen data and is fatal to it.
func Load(ctx context.Context, pool *pgxpool.Pool) (*Tables, error) {
	regimens, err := loadRegimens(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("load moh_regimens: %w", err)
	}
	ingredients, err := loadIngredients(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("load moh_regimen_ingredient: %w", err)
	}
	drugs, err := loadDrugs(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("load drug: %w", err)
	}
	if len(regimens) == 0 || len(ingredients) == 0 {
		return nil, fmt.Errorf("regimen reference tables are empty")
	}
	return NewTables(regimens, ingredients, drugs), nil
}

func loadRegimens(ctx context.Context, pool *pgxpool.Pool) ([]Regimen, error) {
	rows, err := pool.Query(ctx, `SELECT regimen_id, regimen_index FROM moh_regimens ORDER BY regimen_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Regimen
	for rows.Next() {
		var r Regimen
		if err := rows.Scan(&r.RegimenID, &r.RegimenIndex); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func loadIngredients(ctx context.Context, pool *pgxpool.Pool) ([]Ingredient, error) {
	rows, err := pool.Query(ctx, `
		SELECT i.regimen_id, i.drug_inventory_id, i.min_weight, i.max_weight, d.am, d.pm
		FROM moh_regimen_ingredient i
		LEFT JOIN moh_regimen_doses d ON d.dose_id = i.dose_id
		ORDER BY i.ingredient_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Ingredient
	for rows.Next() {
		var in Ingredient
		if err := rows.Scan(&in.RegimenID, &in.DrugID, &in.MinWeight, &in.MaxWeight,
			&in.DoseAM, &in.DosePM); err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	return items, rows.Err()
}

func loadDrugs(ctx context.Context, pool *pgxpool.Pool) ([]Drug, error) {
	rows, err := pool.Query(ctx, `SELECT drug_id, concept_id, retired::int <> 0 FROM drug ORDER BY drug_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Drug
	for rows.Next() {
		var d Drug
		if err := rows.Scan(&d.DrugID, &d.ConceptID, &d.Retired); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
