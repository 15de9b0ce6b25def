package service

import (
	"context"
	"sync"
	"time"

	"termbilling/events"
	"termbilling/models"

	"github.com/stretchr/testify/mock"
)

// MockFeeTierRepository is a mock implementation of FeeTierRepository
type MockFeeTierRepository struct {
	mock.Mock
}

func (m *MockFeeTierRepository) GetByTerm(ctx context.Context, termID int64) ([]*models.FeeTier, error) {
	args := m.Called(ctx, termID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FeeTier), args.Error(1)
}

// MockStudentRepository is a mock implementation of StudentRepository
type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) GetActive(ctx context.Context) ([]*models.Student, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Student), args.Error(1)
}

func (m *MockStudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Student), args.Error(1)
}

func (m *MockStudentRepository) UpdateBalances(ctx context.Context, updates []models.BalanceUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

// MockFeeEntryRepository is a mock implementation of FeeEntryRepository
type MockFeeEntryRepository struct {
	mock.Mock
}

func (m *MockFeeEntryRepository) CreateBatch(ctx context.Context, entries []*models.FeeEntry) (int64, error) {
	args := m.Called(ctx, entries)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFeeEntryRepository) GetByStudent(ctx context.Context, studentID int64) ([]*models.FeeEntry, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.FeeEntry), args.Error(1)
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockEventPublisher) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	feeTierRepo  FeeTierRepository
	studentRepo  StudentRepository
	feeEntryRepo FeeEntryRepository
	publisher    EventPublisher
}

// SetRepositories configures the repositories returned by the unit of work
func (m *MockUnitOfWork) SetRepositories(feeTierRepo FeeTierRepository, studentRepo StudentRepository, feeEntryRepo FeeEntryRepository, publisher EventPublisher) {
	m.feeTierRepo = feeTierRepo
	m.studentRepo = studentRepo
	m.feeEntryRepo = feeEntryRepo
	m.publisher = publisher
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) FeeTierRepository() FeeTierRepository {
	return m.feeTierRepo
}

func (m *MockUnitOfWork) StudentRepository() StudentRepository {
	return m.studentRepo
}

func (m *MockUnitOfWork) FeeEntryRepository() FeeEntryRepository {
	return m.feeEntryRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.publisher
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockBillingMetrics is a mock implementation of BillingMetrics
type MockBillingMetrics struct {
	mock.Mock
}

func (m *MockBillingMetrics) RecordRun(outcome string, duration time.Duration) {
	m.Called(outcome, duration)
}

func (m *MockBillingMetrics) RecordStudents(billed, skipped int) {
	m.Called(billed, skipped)
}

func (m *MockBillingMetrics) RecordLedgerEntries(count int) {
	m.Called(count)
}
