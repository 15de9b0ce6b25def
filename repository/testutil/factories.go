package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"termbilling/database"
	"termbilling/models"
)

// CreateTestStudent creates an active student with zero balances
func CreateTestStudent(grade, class string) *models.Student {
	return &models.Student{
		FirstNames:   "Tendai",
		Surname:      "Moyo",
		Grade:        grade,
		Class:        class,
		Status:       models.StudentStatusActive,
		TuitionOwing: decimal.Zero,
		LevyOwing:    decimal.Zero,
	}
}

// CreateTestStudentWithBalances creates an active student with the given balances
func CreateTestStudentWithBalances(grade, class string, tuitionOwing, levyOwing string) *models.Student {
	student := CreateTestStudent(grade, class)
	student.TuitionOwing = decimal.RequireFromString(tuitionOwing)
	student.LevyOwing = decimal.RequireFromString(levyOwing)
	return student
}

// CreateTestFeeTier creates a fee tier with USD amounts only.
// An empty class produces a grade-wide tier.
func CreateTestFeeTier(termID int64, grade, class string, tuitionUSD, levyUSD string) *models.FeeTier {
	tier := &models.FeeTier{
		TermID:     termID,
		Grade:      grade,
		TuitionUSD: decimal.NewNullDecimal(decimal.RequireFromString(tuitionUSD)),
		LevyUSD:    decimal.NewNullDecimal(decimal.RequireFromString(levyUSD)),
	}
	if class != "" {
		tier.Class = &class
	}
	return tier
}

// InsertTerm inserts a term and returns its id
func InsertTerm(t *testing.T, db *database.DB, name string) int64 {
	var id int64
	err := pgx.BeginFunc(context.Background(), db, func(tx pgx.Tx) error {
		return tx.QueryRow(context.Background(),
			`INSERT INTO terms (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	})
	require.NoError(t, err)
	return id
}

// InsertStudents inserts students in one transaction and sets their ids
func InsertStudents(t *testing.T, db *database.DB, students ...*models.Student) {
	ctx := context.Background()
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for _, s := range students {
			err := tx.QueryRow(ctx, `
				INSERT INTO students (first_names, surname, grade, class, status, tuition_owing, levy_owing, contact_info)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id`,
				s.FirstNames, s.Surname, s.Grade, s.Class, string(s.Status),
				s.TuitionOwing.String(), s.LevyOwing.String(), s.ContactInfo,
			).Scan(&s.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// InsertFeeTiers inserts fee tiers in order and sets their ids
func InsertFeeTiers(t *testing.T, db *database.DB, tiers ...*models.FeeTier) {
	ctx := context.Background()
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for _, tier := range tiers {
			err := tx.QueryRow(ctx, `
				INSERT INTO term_fees (term_id, grade, class, tuition_amount_usd, levy_amount_usd, tuition_amount_zwg, levy_amount_zwg)
				VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric)
				RETURNING id`,
				tier.TermID, tier.Grade, tier.Class,
				nullDecimalText(tier.TuitionUSD), nullDecimalText(tier.LevyUSD),
				nullDecimalText(tier.TuitionZWG), nullDecimalText(tier.LevyZWG),
			).Scan(&tier.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// CountRows returns the number of rows in a table
func CountRows(t *testing.T, db *database.DB, table string) int {
	var count int
	err := db.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&count)
	require.NoError(t, err)
	return count
}

func nullDecimalText(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}
