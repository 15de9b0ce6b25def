package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"termbilling/database"
	"termbilling/events"
	"termbilling/service"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db           *database.DB
	tx           pgx.Tx
	ctx          context.Context
	eventBus     *events.Bus
	txBus        *events.TransactionalBus
	feeTierRepo  service.FeeTierRepository
	studentRepo  service.StudentRepository
	feeEntryRepo service.FeeEntryRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Events published
// inside a unit of work reach eventBus only after the transaction commits.
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

// Create creates a new UnitOfWork instance
func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:       f.db,
		eventBus: f.eventBus,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.feeTierRepo = newFeeTierRepositoryWithTx(tx)
	u.studentRepo = newStudentRepositoryWithTx(tx)
	u.feeEntryRepo = newFeeEntryRepositoryWithTx(tx)

	if u.eventBus != nil {
		u.txBus = events.NewTransactionalBus(u.eventBus)
	}

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.txBus != nil {
		u.txBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.txBus != nil {
		u.txBus.Discard()
	}

	return nil
}

// FeeTierRepository returns the fee tier repository for this unit of work
func (u *unitOfWork) FeeTierRepository() service.FeeTierRepository {
	if u.feeTierRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.feeTierRepo
}

// StudentRepository returns the student repository for this unit of work
func (u *unitOfWork) StudentRepository() service.StudentRepository {
	if u.studentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.studentRepo
}

// FeeEntryRepository returns the fee entry repository for this unit of work
func (u *unitOfWork) FeeEntryRepository() service.FeeEntryRepository {
	if u.feeEntryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.feeEntryRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.txBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.txBus
}
