package service

import (
	"testing"

	"termbilling/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const (
	TestTermID     = 42
	TestStudent1ID = 1001
	TestStudent2ID = 1002
	TestStudent3ID = 1003
)

// TestMocks holds all mocks for a billing run
type TestMocks struct {
	Factory      *MockUnitOfWorkFactory
	UoW          *MockUnitOfWork
	FeeTierRepo  *MockFeeTierRepository
	StudentRepo  *MockStudentRepository
	FeeEntryRepo *MockFeeEntryRepository
	Publisher    *MockEventPublisher
}

// NewTestMocks creates a unit of work wired to fresh mock repositories
func NewTestMocks() *TestMocks {
	m := &TestMocks{
		Factory:      new(MockUnitOfWorkFactory),
		UoW:          new(MockUnitOfWork),
		FeeTierRepo:  new(MockFeeTierRepository),
		StudentRepo:  new(MockStudentRepository),
		FeeEntryRepo: new(MockFeeEntryRepository),
		Publisher:    new(MockEventPublisher),
	}
	m.UoW.SetRepositories(m.FeeTierRepo, m.StudentRepo, m.FeeEntryRepo, m.Publisher)
	return m
}

// AssertAllExpectations asserts all mock expectations
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.Factory.AssertExpectations(t)
	m.UoW.AssertExpectations(t)
	m.FeeTierRepo.AssertExpectations(t)
	m.StudentRepo.AssertExpectations(t)
	m.FeeEntryRepo.AssertExpectations(t)
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func nullDec(value string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(value))
}

func strPtr(s string) *string {
	return &s
}

// newTier builds a fee tier with USD amounts only
func newTier(grade string, class *string, tuitionUSD, levyUSD string) *models.FeeTier {
	tier := &models.FeeTier{TermID: TestTermID, Grade: grade, Class: class}
	if tuitionUSD != "" {
		tier.TuitionUSD = nullDec(tuitionUSD)
	}
	if levyUSD != "" {
		tier.LevyUSD = nullDec(levyUSD)
	}
	return tier
}

func newStudent(id int64, grade, class, tuitionOwing, levyOwing string) *models.Student {
	return &models.Student{
		ID:           id,
		FirstNames:   "Test",
		Surname:      "Student",
		Grade:        grade,
		Class:        class,
		Status:       models.StudentStatusActive,
		TuitionOwing: dec(tuitionOwing),
		LevyOwing:    dec(levyOwing),
	}
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}
