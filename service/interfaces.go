package service

import (
	"context"
	"time"

	"termbilling/events"
	"termbilling/models"
)

// FeeTierRepository defines the interface for reading a term's fee schedule
type FeeTierRepository interface {
	// GetByTerm returns all fee tiers configured for a term, ordered by id
	GetByTerm(ctx context.Context, termID int64) ([]*models.FeeTier, error)
}

// StudentRepository defines the interface for student data access
type StudentRepository interface {
	// GetActive returns all students whose status is active
	GetActive(ctx context.Context) ([]*models.Student, error)

	// GetByID returns a student by id, or nil when it does not exist
	GetByID(ctx context.Context, id int64) (*models.Student, error)

	// UpdateBalances sets the tuition and levy owing of each student in updates
	UpdateBalances(ctx context.Context, updates []models.BalanceUpdate) error
}

// FeeEntryRepository defines the interface for the append-only fee ledger
type FeeEntryRepository interface {
	// CreateBatch inserts all entries and returns the number of rows written
	CreateBatch(ctx context.Context, entries []*models.FeeEntry) (int64, error)

	// GetByStudent returns the ledger entries of a student, newest first
	GetByStudent(ctx context.Context, studentID int64) ([]*models.FeeEntry, error)
}

// EventPublisher defines the interface for publishing events inside a unit of work
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events.
	// It is a no-op after a successful commit.
	Rollback() error

	// Repository getters
	FeeTierRepository() FeeTierRepository
	StudentRepository() StudentRepository
	FeeEntryRepository() FeeEntryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// BillingService defines the interface for term billing operations
type BillingService interface {
	// BillTerm charges every active student the fees configured for the term
	// and records the charges in the fee ledger, all in one transaction.
	BillTerm(ctx context.Context, req BillTermRequest) (*models.BillingResult, error)

	// GetStudentFees returns the fee ledger of a student, newest first
	GetStudentFees(ctx context.Context, studentID int64) ([]*models.FeeEntry, error)
}

// BillingMetrics receives the outcome of each billing run
type BillingMetrics interface {
	RecordRun(outcome string, duration time.Duration)
	RecordStudents(billed, skipped int)
	RecordLedgerEntries(count int)
}
