package models

import (
	"github.com/shopspring/decimal"
)

// FeeTier is the tuition and levy schedule for a grade, or for one class of a
// grade, within a term. A nil Class applies to every class in the grade.
type FeeTier struct {
	ID         int64               `db:"id"`
	TermID     int64               `db:"term_id"`
	Grade      string              `db:"grade"`
	Class      *string             `db:"class"`
	TuitionUSD decimal.NullDecimal `db:"tuition_amount_usd"`
	LevyUSD    decimal.NullDecimal `db:"levy_amount_usd"`
	TuitionZWG decimal.NullDecimal `db:"tuition_amount_zwg"`
	LevyZWG    decimal.NullDecimal `db:"levy_amount_zwg"`
}

// IsGradeWide reports whether the tier applies to all classes of its grade
func (t *FeeTier) IsGradeWide() bool {
	return t.Class == nil || *t.Class == ""
}
