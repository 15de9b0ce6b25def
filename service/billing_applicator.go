package service

import (
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"termbilling/models"
)

// BilledStudent pairs a student with the tier it was billed from and its new balance
type BilledStudent struct {
	Student *models.Student
	Tier    *models.FeeTier
	Update  models.BalanceUpdate
}

// BillingPlan holds everything a billing run will write
type BillingPlan struct {
	BalanceUpdates  []models.BalanceUpdate
	FeeEntries      []*models.FeeEntry
	Billed          []BilledStudent
	Skipped         []*models.Student
	TotalTuitionUSD decimal.Decimal
	TotalLevyUSD    decimal.Decimal
}

// PlanBilling computes the balance updates and ledger entries for a term.
//
// Only the USD tuition and levy amounts are added to the owing balances. ZWG
// amounts are recorded in the ledger only, and a ZWG entry carries the USD
// amount of the same charge as its usd_equivalent. Students without an
// applicable tier are skipped and reported in the plan.
func PlanBilling(schedule *FeeSchedule, students []*models.Student, billingDate time.Time) *BillingPlan {
	plan := &BillingPlan{
		BalanceUpdates:  make([]models.BalanceUpdate, 0, len(students)),
		TotalTuitionUSD: decimal.Zero,
		TotalLevyUSD:    decimal.Zero,
	}

	for _, student := range students {
		tier, ok := schedule.Resolve(student.Grade, student.Class)
		if !ok {
			log.WithFields(log.Fields{
				"studentID": student.ID,
				"grade":     student.Grade,
				"class":     student.Class,
				"termID":    schedule.TermID(),
			}).Warn("No fee config found for student, skipping")
			plan.Skipped = append(plan.Skipped, student)
			continue
		}

		tuitionUSD := amountOrZero(tier.TuitionUSD)
		levyUSD := amountOrZero(tier.LevyUSD)

		update := models.BalanceUpdate{
			StudentID:       student.ID,
			NewTuitionOwing: student.TuitionOwing.Add(tuitionUSD),
			NewLevyOwing:    student.LevyOwing.Add(levyUSD),
		}
		plan.BalanceUpdates = append(plan.BalanceUpdates, update)
		plan.Billed = append(plan.Billed, BilledStudent{Student: student, Tier: tier, Update: update})
		plan.TotalTuitionUSD = plan.TotalTuitionUSD.Add(tuitionUSD)
		plan.TotalLevyUSD = plan.TotalLevyUSD.Add(levyUSD)

		plan.FeeEntries = appendCharge(plan.FeeEntries, student.ID, billingDate, models.ChargeTypeTuition, models.CurrencyUSD, tier.TuitionUSD, tuitionUSD)
		plan.FeeEntries = appendCharge(plan.FeeEntries, student.ID, billingDate, models.ChargeTypeTuition, models.CurrencyZWG, tier.TuitionZWG, tuitionUSD)
		plan.FeeEntries = appendCharge(plan.FeeEntries, student.ID, billingDate, models.ChargeTypeLevy, models.CurrencyUSD, tier.LevyUSD, levyUSD)
		plan.FeeEntries = appendCharge(plan.FeeEntries, student.ID, billingDate, models.ChargeTypeLevy, models.CurrencyZWG, tier.LevyZWG, levyUSD)
	}

	return plan
}

// appendCharge adds a ledger entry when amount is present and positive
func appendCharge(entries []*models.FeeEntry, studentID int64, date time.Time, chargeType models.ChargeType, currency models.Currency, amount decimal.NullDecimal, usdEquivalent decimal.Decimal) []*models.FeeEntry {
	if !amount.Valid || !amount.Decimal.IsPositive() {
		return entries
	}
	// TODO: replace the ZWG usd_equivalent with a converted amount once an exchange rate source exists
	return append(entries, &models.FeeEntry{
		StudentID:     studentID,
		Date:          date,
		Amount:        amount.Decimal,
		Type:          chargeType,
		Currency:      currency,
		USDEquivalent: usdEquivalent,
		Timeline:      models.FeeTimelineNormal,
		Form:          models.FeeFormCashBill,
	})
}

func amountOrZero(amount decimal.NullDecimal) decimal.Decimal {
	if !amount.Valid {
		return decimal.Zero
	}
	return amount.Decimal
}
