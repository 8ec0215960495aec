package repository

import (
	"context"
	"fmt"
)

// TreatmentsByDiseaseAndLocation looks up treatments for a canonical disease
// label at a cultivation location, up to limit entries.
func (r *Repo) TreatmentsByDiseaseAndLocation(ctx context.Context, disease string, locationCode, limit int) ([]Treatment, error) {
	query := `
        SELECT id, disease, location_code, title, description
        FROM treatments
        WHERE lower(disease) = lower($1) AND location_code = $2
        ORDER BY id
        LIMIT $3`

	rows, err := r.pool.Query(ctx, query, disease, locationCode, limit)
	if err != nil {
		return nil, fmt.Errorf("query treatments: %w", err)
	}
	defer rows.Close()

	var treatments []Treatment
	for rows.Next() {
		var t Treatment
		if err := rows.Scan(&t.ID, &t.Disease, &t.LocationCode, &t.Title, &t.Description); err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		treatments = append(treatments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate treatments: %w", err)
	}
	return treatments, nil
}
