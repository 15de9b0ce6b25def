package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"termbilling/events"
	"termbilling/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestBillingService_BillTerm_Success(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewBillingService(mocks.Factory, nil)

	tiers := []*models.FeeTier{
		newTier("Grade 1", strPtr("1A"), "120", "10"),
		newTier("Grade 1", nil, "100", "10"),
	}
	contact := "parent@example.com"
	exact := newStudent(TestStudent1ID, "Grade 1", "1A", "100", "0")
	exact.ContactInfo = &contact
	fallback := newStudent(TestStudent2ID, "Grade 1", "1B", "0", "5")
	unmatched := newStudent(TestStudent3ID, "Grade 8", "8A", "40", "0")

	mocks.Factory.On("Create").Return(mocks.UoW)
	mocks.UoW.On("Begin", ctx).Return(nil)
	mocks.UoW.On("Commit").Return(nil)
	mocks.UoW.On("Rollback").Return(nil)

	mocks.FeeTierRepo.On("GetByTerm", ctx, int64(TestTermID)).Return(tiers, nil)
	mocks.StudentRepo.On("GetActive", ctx).Return([]*models.Student{exact, fallback, unmatched}, nil)

	var updates []models.BalanceUpdate
	mocks.StudentRepo.On("UpdateBalances", ctx, mock.Anything).Run(func(args mock.Arguments) {
		updates = args.Get(1).([]models.BalanceUpdate)
	}).Return(nil)

	var entries []*models.FeeEntry
	mocks.FeeEntryRepo.On("CreateBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		entries = args.Get(1).([]*models.FeeEntry)
	}).Return(int64(4), nil)

	billingDate := time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)
	result, err := service.BillTerm(ctx, BillTermRequest{TermID: TestTermID, BillingDate: billingDate})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, int64(TestTermID), result.TermID)
	assert.Equal(t, 2, result.StudentsBilled)
	assert.Equal(t, 1, result.StudentsSkipped)
	assert.Equal(t, 4, result.LedgerEntries)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), result.BillingDate)
	assertDecimal(t, "220", result.TotalTuitionUSD)
	assertDecimal(t, "20", result.TotalLevyUSD)

	require.Len(t, updates, 2)
	assert.Equal(t, int64(TestStudent1ID), updates[0].StudentID)
	assertDecimal(t, "220", updates[0].NewTuitionOwing)
	assertDecimal(t, "10", updates[0].NewLevyOwing)
	assert.Equal(t, int64(TestStudent2ID), updates[1].StudentID)
	assertDecimal(t, "100", updates[1].NewTuitionOwing)
	assertDecimal(t, "15", updates[1].NewLevyOwing)

	require.Len(t, entries, 4)
	for _, entry := range entries {
		assert.NotEqual(t, int64(TestStudent3ID), entry.StudentID)
		assert.Equal(t, result.BillingDate, entry.Date)
	}

	published := mocks.Publisher.Events()
	require.Len(t, published, 3)
	first, ok := published[0].(events.StudentBilledEvent)
	require.True(t, ok)
	assert.Equal(t, int64(TestStudent1ID), first.StudentID)
	assert.Equal(t, "parent@example.com", first.ContactInfo)
	assertDecimal(t, "120", first.TuitionCharged)
	assertDecimal(t, "220", first.NewTuitionOwing)

	termEvent, ok := published[2].(events.TermBilledEvent)
	require.True(t, ok)
	assert.Equal(t, 2, termEvent.StudentsBilled)
	assert.Equal(t, 1, termEvent.StudentsSkipped)

	mocks.AssertAllExpectations(t)
}

func TestBillingService_BillTerm_MissingTermID(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewBillingService(mocks.Factory, nil)

	result, err := service.BillTerm(ctx, BillTermRequest{})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "term_id is required", err.Error())

	// No database access is attempted
	mocks.Factory.AssertNotCalled(t, "Create")
}

func TestBillingService_BillTerm_NoFeeConfigurations(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewBillingService(mocks.Factory, nil)

	mocks.Factory.On("Create").Return(mocks.UoW)
	mocks.UoW.On("Begin", ctx).Return(nil)
	mocks.UoW.On("Rollback").Return(nil)
	mocks.FeeTierRepo.On("GetByTerm", ctx, int64(99)).Return([]*models.FeeTier{}, nil)

	result, err := service.BillTerm(ctx, BillTermRequest{TermID: 99})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "No fee configurations found for term ID 99", err.Error())

	mocks.StudentRepo.AssertNotCalled(t, "GetActive", mock.Anything)
	mocks.StudentRepo.AssertNotCalled(t, "UpdateBalances", mock.Anything, mock.Anything)
	mocks.FeeEntryRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	mocks.UoW.AssertNotCalled(t, "Commit")
	assert.Empty(t, mocks.Publisher.Events())
	mocks.AssertAllExpectations(t)
}

func TestBillingService_BillTerm_BeginError(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewBillingService(mocks.Factory, nil)

	mocks.Factory.On("Create").Return(mocks.UoW)
	mocks.UoW.On("Begin", ctx).Return(errors.New("too many connections"))

	_, err := service.BillTerm(ctx, BillTermRequest{TermID: TestTermID})

	require.Error(t, err)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Contains(t, err.Error(), "too many connections")
	mocks.FeeTierRepo.AssertNotCalled(t, "GetByTerm", mock.Anything, mock.Anything)
}

func TestBillingService_BillTerm_WriteFailuresRollBack(t *testing.T) {
	tests := []struct {
		name          string
		updateErr     error
		insertErr     error
		commitErr     error
		expectInsert  bool
		expectCommit  bool
		expectMessage string
	}{
		{
			name:          "balance update fails",
			updateErr:     errors.New("deadlock detected"),
			expectMessage: "failed to update student balances: deadlock detected",
		},
		{
			name:          "ledger insert fails",
			insertErr:     errors.New("violates check constraint"),
			expectInsert:  true,
			expectMessage: "failed to insert fee records: violates check constraint",
		},
		{
			name:          "commit fails",
			commitErr:     errors.New("connection lost"),
			expectInsert:  true,
			expectCommit:  true,
			expectMessage: "failed to commit transaction: connection lost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mocks := NewTestMocks()
			service := NewBillingService(mocks.Factory, nil)

			mocks.Factory.On("Create").Return(mocks.UoW)
			mocks.UoW.On("Begin", ctx).Return(nil)
			mocks.UoW.On("Rollback").Return(nil)
			if tt.expectCommit {
				mocks.UoW.On("Commit").Return(tt.commitErr)
			}

			mocks.FeeTierRepo.On("GetByTerm", ctx, int64(TestTermID)).Return([]*models.FeeTier{newTier("Grade 1", nil, "100", "")}, nil)
			mocks.StudentRepo.On("GetActive", ctx).Return([]*models.Student{newStudent(TestStudent1ID, "Grade 1", "1A", "0", "0")}, nil)
			mocks.StudentRepo.On("UpdateBalances", ctx, mock.Anything).Return(tt.updateErr)
			if tt.expectInsert {
				mocks.FeeEntryRepo.On("CreateBatch", ctx, mock.Anything).Return(int64(0), tt.insertErr)
			}

			result, err := service.BillTerm(ctx, BillTermRequest{TermID: TestTermID})

			assert.Nil(t, result)
			require.Error(t, err)
			assert.Equal(t, KindPersistence, KindOf(err))
			assert.Equal(t, tt.expectMessage, err.Error())
			if !tt.expectInsert {
				mocks.FeeEntryRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
			}
			if !tt.expectCommit {
				mocks.UoW.AssertNotCalled(t, "Commit")
			}
			mocks.UoW.AssertCalled(t, "Rollback")
			mocks.AssertAllExpectations(t)
		})
	}
}

func TestBillingService_BillTerm_GetActiveError(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewBillingService(mocks.Factory, nil)

	mocks.Factory.On("Create").Return(mocks.UoW)
	mocks.UoW.On("Begin", ctx).Return(nil)
	mocks.UoW.On("Rollback").Return(nil)
	mocks.FeeTierRepo.On("GetByTerm", ctx, int64(TestTermID)).Return([]*models.FeeTier{newTier("Grade 1", nil, "100", "")}, nil)
	mocks.StudentRepo.On("GetActive", ctx).Return(nil, errors.New("relation \"students\" does not exist"))

	_, err := service.BillTerm(ctx, BillTermRequest{TermID: TestTermID})

	require.Error(t, err)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Contains(t, err.Error(), "failed to get active students")
	mocks.AssertAllExpectations(t)
}

func TestBillingService_BillTerm_NothingToWrite(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	service := NewBillingService(mocks.Factory, nil)

	mocks.Factory.On("Create").Return(mocks.UoW)
	mocks.UoW.On("Begin", ctx).Return(nil)
	mocks.UoW.On("Commit").Return(nil)
	mocks.UoW.On("Rollback").Return(nil)
	mocks.FeeTierRepo.On("GetByTerm", ctx, int64(TestTermID)).Return([]*models.FeeTier{newTier("Grade 1", nil, "100", "")}, nil)
	mocks.StudentRepo.On("GetActive", ctx).Return([]*models.Student{newStudent(TestStudent1ID, "Grade 3", "3A", "0", "0")}, nil)

	result, err := service.BillTerm(ctx, BillTermRequest{TermID: TestTermID})

	require.NoError(t, err)
	assert.Equal(t, 0, result.StudentsBilled)
	assert.Equal(t, 1, result.StudentsSkipped)
	mocks.StudentRepo.AssertNotCalled(t, "UpdateBalances", mock.Anything, mock.Anything)
	mocks.FeeEntryRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything)
	mocks.AssertAllExpectations(t)
}

func TestBillingService_BillTerm_DefaultsBillingDateToToday(t *testing.T) {
	ctx := context.Background()
	mocks := NewTestMocks()
	svc := NewBillingService(mocks.Factory, nil).(*billingService)
	svc.now = func() time.Time { return time.Date(2026, 9, 1, 8, 45, 0, 0, time.UTC) }

	mocks.Factory.On("Create").Return(mocks.UoW)
	mocks.UoW.On("Begin", ctx).Return(nil)
	mocks.UoW.On("Commit").Return(nil)
	mocks.UoW.On("Rollback").Return(nil)
	mocks.FeeTierRepo.On("GetByTerm", ctx, int64(TestTermID)).Return([]*models.FeeTier{newTier("Grade 1", nil, "100", "")}, nil)
	mocks.StudentRepo.On("GetActive", ctx).Return([]*models.Student{newStudent(TestStudent1ID, "Grade 1", "1A", "0", "0")}, nil)
	mocks.StudentRepo.On("UpdateBalances", ctx, mock.Anything).Return(nil)
	mocks.FeeEntryRepo.On("CreateBatch", ctx, mock.MatchedBy(func(entries []*models.FeeEntry) bool {
		return len(entries) == 1 && entries[0].Date.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	})).Return(int64(1), nil)

	result, err := svc.BillTerm(ctx, BillTermRequest{TermID: TestTermID})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), result.BillingDate)
	mocks.AssertAllExpectations(t)
}

func TestBillingService_BillTerm_RecordsMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mocks := NewTestMocks()
		metrics := new(MockBillingMetrics)
		service := NewBillingService(mocks.Factory, metrics)

		mocks.Factory.On("Create").Return(mocks.UoW)
		mocks.UoW.On("Begin", ctx).Return(nil)
		mocks.UoW.On("Commit").Return(nil)
		mocks.UoW.On("Rollback").Return(nil)
		mocks.FeeTierRepo.On("GetByTerm", ctx, int64(TestTermID)).Return([]*models.FeeTier{newTier("Grade 1", nil, "100", "")}, nil)
		mocks.StudentRepo.On("GetActive", ctx).Return([]*models.Student{
			newStudent(TestStudent1ID, "Grade 1", "1A", "0", "0"),
			newStudent(TestStudent2ID, "Grade 2", "2A", "0", "0"),
		}, nil)
		mocks.StudentRepo.On("UpdateBalances", ctx, mock.Anything).Return(nil)
		mocks.FeeEntryRepo.On("CreateBatch", ctx, mock.Anything).Return(int64(1), nil)

		metrics.On("RecordRun", "success", mock.AnythingOfType("time.Duration")).Return()
		metrics.On("RecordStudents", 1, 1).Return()
		metrics.On("RecordLedgerEntries", 1).Return()

		_, err := service.BillTerm(ctx, BillTermRequest{TermID: TestTermID})

		require.NoError(t, err)
		metrics.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mocks := NewTestMocks()
		metrics := new(MockBillingMetrics)
		service := NewBillingService(mocks.Factory, metrics)

		mocks.Factory.On("Create").Return(mocks.UoW)
		mocks.UoW.On("Begin", ctx).Return(nil)
		mocks.UoW.On("Rollback").Return(nil)
		mocks.FeeTierRepo.On("GetByTerm", ctx, int64(TestTermID)).Return([]*models.FeeTier{}, nil)
		metrics.On("RecordRun", "not_found", mock.AnythingOfType("time.Duration")).Return()

		_, err := service.BillTerm(ctx, BillTermRequest{TermID: TestTermID})

		require.Error(t, err)
		metrics.AssertExpectations(t)
		metrics.AssertNotCalled(t, "RecordStudents", mock.Anything, mock.Anything)
	})
}

func TestBillingService_GetStudentFees(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ledger", func(t *testing.T) {
		mocks := NewTestMocks()
		service := NewBillingService(mocks.Factory, nil)

		ledger := []*models.FeeEntry{{ID: 1, StudentID: TestStudent1ID, Amount: dec("50")}}
		mocks.Factory.On("Create").Return(mocks.UoW)
		mocks.UoW.On("Begin", ctx).Return(nil)
		mocks.UoW.On("Rollback").Return(nil)
		mocks.StudentRepo.On("GetByID", ctx, int64(TestStudent1ID)).Return(newStudent(TestStudent1ID, "Form 1", "1A", "0", "0"), nil)
		mocks.FeeEntryRepo.On("GetByStudent", ctx, int64(TestStudent1ID)).Return(ledger, nil)

		entries, err := service.GetStudentFees(ctx, TestStudent1ID)

		require.NoError(t, err)
		assert.Equal(t, ledger, entries)
		mocks.UoW.AssertNotCalled(t, "Commit")
		mocks.AssertAllExpectations(t)
	})

	t.Run("unknown student", func(t *testing.T) {
		mocks := NewTestMocks()
		service := NewBillingService(mocks.Factory, nil)

		mocks.Factory.On("Create").Return(mocks.UoW)
		mocks.UoW.On("Begin", ctx).Return(nil)
		mocks.UoW.On("Rollback").Return(nil)
		mocks.StudentRepo.On("GetByID", ctx, int64(77)).Return(nil, nil)

		_, err := service.GetStudentFees(ctx, 77)

		require.Error(t, err)
		assert.Equal(t, KindNotFound, KindOf(err))
		assert.Equal(t, "Student with ID 77 not found", err.Error())
		mocks.FeeEntryRepo.AssertNotCalled(t, "GetByStudent", mock.Anything, mock.Anything)
	})

	t.Run("invalid id", func(t *testing.T) {
		mocks := NewTestMocks()
		service := NewBillingService(mocks.Factory, nil)

		_, err := service.GetStudentFees(ctx, 0)

		require.Error(t, err)
		assert.Equal(t, KindValidation, KindOf(err))
		mocks.Factory.AssertNotCalled(t, "Create")
	})
}
