// Package repository provides testify mocks for the domain repository interfaces.
package repository

import (
	"context"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"

	"github.com/stretchr/testify/mock"
)

// T is the subset of testing.TB the constructors need.
type T interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock whose expectations are asserted on cleanup.
func NewMockUserRepository(t T) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*entity.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

// MockProductRepository is a mock of repository.ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

// NewMockProductRepository creates a mock whose expectations are asserted on cleanup.
func NewMockProductRepository(t T) *MockProductRepository {
	m := &MockProductRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProductRepository) List(ctx context.Context) ([]*entity.Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]*entity.Product)
	return products, args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *entity.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) FindForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*entity.Product)
	return product, args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, id int64, quantity int) error {
	return m.Called(ctx, id, quantity).Error(0)
}

// MockOrderRepository is a mock of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

// NewMockOrderRepository creates a mock whose expectations are asserted on cleanup.
func NewMockOrderRepository(t T) *MockOrderRepository {
	m := &MockOrderRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) AddItem(ctx context.Context, item *entity.OrderItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.Order, error) {
	args := m.Called(ctx, userID)
	orders, _ := args.Get(0).([]*entity.Order)
	return orders, args.Error(1)
}

func (m *MockOrderRepository) FindByIDForUser(ctx context.Context, id, userID int64) (*entity.Order, error) {
	args := m.Called(ctx, id, userID)
	order, _ := args.Get(0).(*entity.Order)
	return order, args.Error(1)
}

// MockSession is a mock of repository.Session. Repository accessors return the
// embedded mocks; Execute runs fn against the same mocks unless an expectation
// for Execute has been registered.
type MockSession struct {
	mock.Mock

	Users    *MockUserRepository
	Products *MockProductRepository
	Orders   *MockOrderRepository
}

// NewMockSession creates a session backed by fresh repository mocks.
func NewMockSession(t T) *MockSession {
	return &MockSession{
		Users:    NewMockUserRepository(t),
		Products: NewMockProductRepository(t),
		Orders:   NewMockOrderRepository(t),
	}
}

func (m *MockSession) UserRepo() repository.UserRepository       { return m.Users }
func (m *MockSession) ProductRepo() repository.ProductRepository { return m.Products }
func (m *MockSession) OrderRepo() repository.OrderRepository     { return m.Orders }

func (m *MockSession) Execute(ctx context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	if len(m.ExpectedCalls) > 0 {
		return m.Called(ctx, fn).Error(0)
	}
	return fn(m)
}

// MockTenantResolver is a mock of repository.TenantResolver.
type MockTenantResolver struct {
	mock.Mock
}

// NewMockTenantResolver creates a mock whose expectations are asserted on cleanup.
func NewMockTenantResolver(t T) *MockTenantResolver {
	m := &MockTenantResolver{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTenantResolver) Resolve(ctx context.Context, subdomain string) (repository.TenantPool, error) {
	args := m.Called(ctx, subdomain)
	pool, _ := args.Get(0).(repository.TenantPool)
	return pool, args.Error(1)
}

// MockTenantPool is a mock of repository.TenantPool.
type MockTenantPool struct {
	mock.Mock
}

// NewMockTenantPool creates a mock whose expectations are asserted on cleanup.
func NewMockTenantPool(t T) *MockTenantPool {
	m := &MockTenantPool{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTenantPool) Tenant() entity.Tenant {
	return m.Called().Get(0).(entity.Tenant)
}

func (m *MockTenantPool) Acquire(ctx context.Context) (repository.Session, func(), error) {
	args := m.Called(ctx)
	session, _ := args.Get(0).(repository.Session)
	release, _ := args.Get(1).(func())
	return session, release, args.Error(2)
}

func (m *MockTenantPool) Close() error {
	return m.Called().Error(0)
}
