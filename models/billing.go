package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingResult summarises a committed billing run
type BillingResult struct {
	TermID          int64
	BillingDate     time.Time
	StudentsBilled  int
	StudentsSkipped int
	LedgerEntries   int
	TotalTuitionUSD decimal.Decimal
	TotalLevyUSD    decimal.Decimal
}
