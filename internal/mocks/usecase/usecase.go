// Package usecase provides testify mocks for the usecase interfaces.
package usecase

import (
	"context"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/mock"
)

// T is the subset of testing.TB the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

// MockGuardUsecase is a mock of usecase.GuardUsecase.
type MockGuardUsecase struct {
	mock.Mock
}

// NewMockGuardUsecase creates a mock whose expectations are asserted on cleanup.
func NewMockGuardUsecase(t T) *MockGuardUsecase {
	m := &MockGuardUsecase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockGuardUsecase) Authenticate(ctx context.Context, tenant string, session repository.Session, authorization string) (*entity.Identity, error) {
	args := m.Called(ctx, tenant, session, authorization)
	identity, _ := args.Get(0).(*entity.Identity)
	return identity, args.Error(1)
}

// MockOrderUsecase is a mock of usecase.OrderUsecase.
type MockOrderUsecase struct {
	mock.Mock
}

// NewMockOrderUsecase creates a mock whose expectations are asserted on cleanup.
func NewMockOrderUsecase(t T) *MockOrderUsecase {
	m := &MockOrderUsecase{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOrderUsecase) PlaceOrder(ctx context.Context, session repository.Session, identity *entity.Identity, input *usecase.PlaceOrderInput) (*entity.Order, error) {
	args := m.Called(ctx, session, identity, input)
	order, _ := args.Get(0).(*entity.Order)
	return order, args.Error(1)
}

func (m *MockOrderUsecase) ListOrders(ctx context.Context, session repository.Session, identity *entity.Identity) ([]*entity.Order, error) {
	args := m.Called(ctx, session, identity)
	orders, _ := args.Get(0).([]*entity.Order)
	return orders, args.Error(1)
}

func (m *MockOrderUsecase) GetOrder(ctx context.Context, session repository.Session, identity *entity.Identity, orderID int64) (*entity.Order, error) {
	args := m.Called(ctx, session, identity, orderID)
	order, _ := args.Get(0).(*entity.Order)
	return order, args.Error(1)
}
