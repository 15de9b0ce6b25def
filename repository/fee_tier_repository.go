package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"termbilling/database"
	"termbilling/models"
)

// FeeTierRepository implements the FeeTierRepository interface
type FeeTierRepository struct {
	q queryable
}

// NewFeeTierRepository creates a new fee tier repository
func NewFeeTierRepository(db *database.DB) *FeeTierRepository {
	return &FeeTierRepository{q: db.Pool}
}

// newFeeTierRepositoryWithTx creates a new fee tier repository with a transaction
func newFeeTierRepositoryWithTx(tx queryable) *FeeTierRepository {
	return &FeeTierRepository{q: tx}
}

// GetByTerm returns all fee tiers configured for a term, ordered by id
func (r *FeeTierRepository) GetByTerm(ctx context.Context, termID int64) ([]*models.FeeTier, error) {
	query := `
		SELECT id, term_id, grade, class,
		       tuition_amount_usd, levy_amount_usd,
		       tuition_amount_zwg, levy_amount_zwg
		FROM term_fees
		WHERE term_id = $1
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee tiers for term %d: %w", termID, err)
	}
	defer rows.Close()

	var tiers []*models.FeeTier
	for rows.Next() {
		var tier models.FeeTier
		var tuitionUSD, levyUSD, tuitionZWG, levyZWG pgtype.Numeric

		err := rows.Scan(
			&tier.ID,
			&tier.TermID,
			&tier.Grade,
			&tier.Class,
			&tuitionUSD,
			&levyUSD,
			&tuitionZWG,
			&levyZWG,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee tier: %w", err)
		}

		tier.TuitionUSD = fromNullNumeric(tuitionUSD)
		tier.LevyUSD = fromNullNumeric(levyUSD)
		tier.TuitionZWG = fromNullNumeric(tuitionZWG)
		tier.LevyZWG = fromNullNumeric(levyZWG)

		tiers = append(tiers, &tier)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fee tiers: %w", err)
	}

	return tiers, nil
}
