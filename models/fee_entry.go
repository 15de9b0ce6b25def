package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChargeType is the fee category of a ledger entry
type ChargeType string

const (
	ChargeTypeTuition ChargeType = "tuition"
	ChargeTypeLevy    ChargeType = "levy"
)

// Currency is the denomination of a ledger entry
type Currency string

const (
	CurrencyUSD Currency = "usd"
	CurrencyZWG Currency = "zwg"
)

const (
	// FeeTimelineNormal marks a charge raised on the regular term schedule
	FeeTimelineNormal = "normal"

	// FeeFormCashBill marks a system-generated bill
	FeeFormCashBill = "cash_bill"
)

// FeeEntry is an append-only record of a single charge raised against a student
type FeeEntry struct {
	ID            int64           `db:"id"`
	StudentID     int64           `db:"student_id"`
	Date          time.Time       `db:"date"`
	Amount        decimal.Decimal `db:"amount"`
	Type          ChargeType      `db:"type"`
	Currency      Currency        `db:"currency"`
	USDEquivalent decimal.Decimal `db:"usd_equivalent"`
	Timeline      string          `db:"timeline"`
	Form          string          `db:"form"`
	CreatedAt     time.Time       `db:"created_at"`
}
