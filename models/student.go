package models

import (
	"github.com/shopspring/decimal"
)

// StudentStatus represents the enrollment state of a student
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusInactive  StudentStatus = "inactive"
	StudentStatusGraduated StudentStatus = "graduated"
)

// Student holds the fields of a student record the billing run reads and updates
type Student struct {
	ID           int64           `db:"id"`
	FirstNames   string          `db:"first_names"`
	Surname      string          `db:"surname"`
	Grade        string          `db:"grade"`
	Class        string          `db:"class"`
	Status       StudentStatus   `db:"status"`
	TuitionOwing decimal.Decimal `db:"tuition_owing"`
	LevyOwing    decimal.Decimal `db:"levy_owing"`
	ContactInfo  *string         `db:"contact_info"`
}

// BalanceUpdate is the new owing balance computed for one student in a billing run
type BalanceUpdate struct {
	StudentID       int64
	NewTuitionOwing decimal.Decimal
	NewLevyOwing    decimal.Decimal
}
