package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"termbilling/events"
	"termbilling/models"
)

// BillTermRequest identifies the term to bill and the date stamped on its charges
type BillTermRequest struct {
	TermID int64
	// BillingDate defaults to the current date when zero
	BillingDate time.Time
}

type billingService struct {
	uowFactory UnitOfWorkFactory
	metrics    BillingMetrics
	now        func() time.Time
}

// NewBillingService creates a new billing service. metrics may be nil.
func NewBillingService(uowFactory UnitOfWorkFactory, metrics BillingMetrics) BillingService {
	return &billingService{
		uowFactory: uowFactory,
		metrics:    metrics,
		now:        time.Now,
	}
}

func (s *billingService) BillTerm(ctx context.Context, req BillTermRequest) (*models.BillingResult, error) {
	if req.TermID <= 0 {
		return nil, NewValidationError("term_id is required")
	}

	billingDate := req.BillingDate
	if billingDate.IsZero() {
		billingDate = s.now()
	}
	billingDate = startOfDay(billingDate)

	start := time.Now()
	result, err := s.billTerm(ctx, req.TermID, billingDate)
	outcome := "success"
	if err != nil {
		outcome = KindOf(err).String()
	}
	if s.metrics != nil {
		s.metrics.RecordRun(outcome, time.Since(start))
	}

	logger := log.WithFields(log.Fields{
		"termID":      req.TermID,
		"billingDate": billingDate.Format(time.DateOnly),
		"durationMs":  time.Since(start).Milliseconds(),
	})
	if err != nil {
		logger.WithError(err).WithField("outcome", outcome).Error("Billing run failed")
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordStudents(result.StudentsBilled, result.StudentsSkipped)
		s.metrics.RecordLedgerEntries(result.LedgerEntries)
	}
	logger.WithFields(log.Fields{
		"studentsBilled":  result.StudentsBilled,
		"studentsSkipped": result.StudentsSkipped,
		"ledgerEntries":   result.LedgerEntries,
		"totalTuitionUSD": result.TotalTuitionUSD.StringFixed(2),
		"totalLevyUSD":    result.TotalLevyUSD.StringFixed(2),
	}).Info("Billing run committed")

	return result, nil
}

func (s *billingService) billTerm(ctx context.Context, termID int64, billingDate time.Time) (*models.BillingResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, NewPersistenceError(err, "failed to begin transaction")
	}
	defer uow.Rollback() // No-op if already committed

	schedule, err := ResolveFeeSchedule(ctx, uow.FeeTierRepository(), termID)
	if err != nil {
		return nil, err
	}

	students, err := uow.StudentRepository().GetActive(ctx)
	if err != nil {
		return nil, NewPersistenceError(err, "failed to get active students")
	}

	plan := PlanBilling(schedule, students, billingDate)

	if len(plan.BalanceUpdates) > 0 {
		if err := uow.StudentRepository().UpdateBalances(ctx, plan.BalanceUpdates); err != nil {
			return nil, NewPersistenceError(err, "failed to update student balances")
		}
	}

	var inserted int64
	if len(plan.FeeEntries) > 0 {
		inserted, err = uow.FeeEntryRepository().CreateBatch(ctx, plan.FeeEntries)
		if err != nil {
			return nil, NewPersistenceError(err, "failed to insert fee records")
		}
	}

	for _, billed := range plan.Billed {
		uow.EventBus().Publish(studentBilledEvent(termID, billed))
	}
	uow.EventBus().Publish(events.TermBilledEvent{
		TermID:          termID,
		BillingDate:     billingDate,
		StudentsBilled:  len(plan.BalanceUpdates),
		StudentsSkipped: len(plan.Skipped),
		LedgerEntries:   int(inserted),
	})

	if err := uow.Commit(); err != nil {
		return nil, NewPersistenceError(err, "failed to commit transaction")
	}

	return &models.BillingResult{
		TermID:          termID,
		BillingDate:     billingDate,
		StudentsBilled:  len(plan.BalanceUpdates),
		StudentsSkipped: len(plan.Skipped),
		LedgerEntries:   int(inserted),
		TotalTuitionUSD: plan.TotalTuitionUSD,
		TotalLevyUSD:    plan.TotalLevyUSD,
	}, nil
}

func studentBilledEvent(termID int64, billed BilledStudent) events.StudentBilledEvent {
	event := events.StudentBilledEvent{
		StudentID:       billed.Student.ID,
		TermID:          termID,
		FirstNames:      billed.Student.FirstNames,
		Surname:         billed.Student.Surname,
		TuitionCharged:  amountOrZero(billed.Tier.TuitionUSD),
		LevyCharged:     amountOrZero(billed.Tier.LevyUSD),
		NewTuitionOwing: billed.Update.NewTuitionOwing,
		NewLevyOwing:    billed.Update.NewLevyOwing,
	}
	if billed.Student.ContactInfo != nil {
		event.ContactInfo = *billed.Student.ContactInfo
	}
	return event
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GetStudentFees returns the ledger of an existing student, newest first
func (s *billingService) GetStudentFees(ctx context.Context, studentID int64) ([]*models.FeeEntry, error) {
	if studentID <= 0 {
		return nil, NewValidationError("student id must be positive")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, NewPersistenceError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	student, err := uow.StudentRepository().GetByID(ctx, studentID)
	if err != nil {
		return nil, NewPersistenceError(err, "failed to get student")
	}
	if student == nil {
		return nil, NewNotFoundError(fmt.Sprintf("Student with ID %d not found", studentID))
	}

	entries, err := uow.FeeEntryRepository().GetByStudent(ctx, studentID)
	if err != nil {
		return nil, NewPersistenceError(err, "failed to get fee records")
	}
	return entries, nil
}
