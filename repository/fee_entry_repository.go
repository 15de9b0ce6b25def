package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"termbilling/database"
	"termbilling/models"
)

var feeEntryColumns = []string{"student_id", "date", "amount", "type", "currency", "usd_equivalent", "timeline", "form"}

// FeeEntryRepository implements the FeeEntryRepository interface
type FeeEntryRepository struct {
	q queryable
}

// NewFeeEntryRepository creates a new fee entry repository
func NewFeeEntryRepository(db *database.DB) *FeeEntryRepository {
	return &FeeEntryRepository{q: db.Pool}
}

// newFeeEntryRepositoryWithTx creates a new fee entry repository with a transaction
func newFeeEntryRepositoryWithTx(tx queryable) *FeeEntryRepository {
	return &FeeEntryRepository{q: tx}
}

// CreateBatch inserts all entries with COPY and returns the number of rows written
func (r *FeeEntryRepository) CreateBatch(ctx context.Context, entries []*models.FeeEntry) (int64, error) {
	rows := make([][]any, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []any{
			entry.StudentID,
			entry.Date,
			toNumeric(entry.Amount),
			string(entry.Type),
			string(entry.Currency),
			toNumeric(entry.USDEquivalent),
			entry.Timeline,
			entry.Form,
		})
	}

	count, err := r.q.CopyFrom(ctx, pgx.Identifier{"fees"}, feeEntryColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to insert %d fee records: %w", len(entries), err)
	}
	return count, nil
}

// GetByStudent returns the ledger entries of a student, newest first
func (r *FeeEntryRepository) GetByStudent(ctx context.Context, studentID int64) ([]*models.FeeEntry, error) {
	query := `
		SELECT id, student_id, date, amount, type, currency,
		       usd_equivalent, timeline, form, created_at
		FROM fees
		WHERE student_id = $1
		ORDER BY date DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fee records for student %d: %w", studentID, err)
	}
	defer rows.Close()

	var entries []*models.FeeEntry
	for rows.Next() {
		var entry models.FeeEntry
		var amount, usdEquivalent pgtype.Numeric

		err := rows.Scan(
			&entry.ID,
			&entry.StudentID,
			&entry.Date,
			&amount,
			&entry.Type,
			&entry.Currency,
			&usdEquivalent,
			&entry.Timeline,
			&entry.Form,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fee record: %w", err)
		}

		entry.Amount = fromNumeric(amount)
		entry.USDEquivalent = fromNumeric(usdEquivalent)
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fee records: %w", err)
	}

	return entries, nil
}
