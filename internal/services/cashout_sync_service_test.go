package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cashbox/internal/core"
	"cashbox/internal/storage"
)

// MockRepository is a mock implementation of CurrencyRepository for testing
type MockRepository struct {
	MockStore
}

func (m *MockRepository) GetCurrency(ctx context.Context, id string) (*storage.StoredCurrency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoredCurrency), args.Error(1)
}

func (m *MockRepository) Close() error {
	return m.Called().Error(0)
}

// MockPublisher is a mock implementation of CashOutPublisher for testing
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishCashOutSync(ctx context.Context, id string, version int64) error {
	return m.Called(ctx, id, version).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func TestCashOutSyncService_SavesThenPublishes(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	pub := new(MockPublisher)
	update := core.CashOut(decimal.RequireFromString("6.38"))

	repo.On("UpdateCurrency", ctx, "abc", update).Return(nil)
	repo.On("GetCurrency", ctx, "abc").Return(&storage.StoredCurrency{Version: 2}, nil)
	pub.On("PublishCashOutSync", ctx, "abc", int64(2)).Return(nil)

	svc := NewCashOutSyncService(repo, pub, quietLogger())
	require.NoError(t, svc.UpdateCurrency(ctx, "abc", update))

	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCashOutSyncService_PublishFailureDoesNotFailUpdate(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	pub := new(MockPublisher)

	repo.On("UpdateCurrency", ctx, "abc", mock.Anything).Return(nil)
	repo.On("GetCurrency", ctx, "abc").Return(&storage.StoredCurrency{Version: 2}, nil)
	pub.On("PublishCashOutSync", ctx, "abc", int64(2)).Return(errors.New("broker down"))

	svc := NewCashOutSyncService(repo, pub, quietLogger())
	assert.NoError(t, svc.UpdateCurrency(ctx, "abc", core.CashOut(decimal.Zero)))
}

func TestCashOutSyncService_SaveFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	pub := new(MockPublisher)
	repo.On("UpdateCurrency", ctx, "abc", mock.Anything).Return(core.ErrAlreadyCashedOut)

	svc := NewCashOutSyncService(repo, pub, quietLogger())
	err := svc.UpdateCurrency(ctx, "abc", core.CashOut(decimal.Zero))
	assert.ErrorIs(t, err, core.ErrAlreadyCashedOut)
	pub.AssertNotCalled(t, "PublishCashOutSync", mock.Anything, mock.Anything, mock.Anything)
}

func TestCashOutSyncService_NoPublisher(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("UpdateCurrency", ctx, "abc", mock.Anything).Return(nil)
	repo.On("GetCurrency", ctx, "abc").Return(&storage.StoredCurrency{Version: 2}, nil)
	repo.On("Close").Return(nil)

	svc := NewCashOutSyncService(repo, nil, quietLogger())
	require.NoError(t, svc.UpdateCurrency(ctx, "abc", core.CashOut(decimal.Zero)))
	require.NoError(t, svc.Close())
}

func TestCashOutSyncService_CloseJoinsErrors(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	repo.On("Close").Return(errors.New("db busy"))
	pub.On("Close").Return(errors.New("conn reset"))

	err := NewCashOutSyncService(repo, pub, quietLogger()).Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db busy")
	assert.Contains(t, err.Error(), "conn reset")
}
