package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain/entity"
	"storefront/internal/domain/repository"

	"github.com/shopspring/decimal"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryStore is a tenant database held in memory. Transactions work on a copy
// that replaces the committed state only when fn succeeds.
type memoryStore struct {
	mu       sync.Mutex
	users    map[int64]entity.User
	products map[int64]entity.Product
	orders   map[int64]entity.Order
	nextID   int64
	clock    time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    map[int64]entity.User{},
		products: map[int64]entity.Product{},
		orders:   map[int64]entity.Order{},
		nextID:   100,
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *memoryStore) clone() *memoryStore {
	c := &memoryStore{
		users:    make(map[int64]entity.User, len(s.users)),
		products: make(map[int64]entity.Product, len(s.products)),
		orders:   make(map[int64]entity.Order, len(s.orders)),
		nextID:   s.nextID,
		clock:    s.clock,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]entity.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	return c
}

func (s *memoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memoryStore) addProduct(id int64, name, price string, stock int) {
	s.products[id] = entity.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
}

func (s *memoryStore) addUser(id int64, email string, role entity.Role) {
	s.users[id] = entity.User{ID: id, Name: email, Email: email, Role: role}
}

func (s *memoryStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memoryStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// memorySession serializes transactions, which is what row locks give the
// order flow on a real database.
type memorySession struct {
	store *memoryStore
}

func (s *memorySession) UserRepo() repository.UserRepository       { return &memoryUsers{s.store} }
func (s *memorySession) ProductRepo() repository.ProductRepository { return &memoryProducts{s.store} }
func (s *memorySession) OrderRepo() repository.OrderRepository     { return &memoryOrders{s.store} }

func (s *memorySession) Execute(ctx context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	tx := s.store.clone()
	if err := fn(&memorySession{store: tx}); err != nil {
		return err
	}

	s.store.users, s.store.products, s.store.orders, s.store.nextID = tx.users, tx.products, tx.orders, tx.nextID
	return nil
}

type memoryUsers struct {
	store *memoryStore
}

func (r *memoryUsers) FindByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *memoryUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.store.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *memoryUsers) Create(_ context.Context, user *entity.User) error {
	user.ID = r.store.id()
	r.store.users[user.ID] = *user
	return nil
}

type memoryProducts struct {
	store *memoryStore
}

func (r *memoryProducts) List(_ context.Context) ([]*entity.Product, error) {
	out := make([]*entity.Product, 0, len(r.store.products))
	for _, p := range r.store.products {
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryProducts) Create(_ context.Context, product *entity.Product) error {
	product.ID = r.store.id()
	r.store.products[product.ID] = *product
	return nil
}

func (r *memoryProducts) FindForUpdate(_ context.Context, id int64) (*entity.Product, error) {
	p, ok := r.store.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (r *memoryProducts) DecrementStock(_ context.Context, id int64, quantity int) error {
	p, ok := r.store.products[id]
	if !ok || p.Stock < quantity {
		return repository.ErrStockConflict
	}
	p.Stock -= quantity
	r.store.products[id] = p
	return nil
}

type memoryOrders struct {
	store *memoryStore
}

func (r *memoryOrders) Create(_ context.Context, order *entity.Order) error {
	order.ID = r.store.id()
	order.CreatedAt = r.store.clock
	r.store.orders[order.ID] = *order
	return nil
}

func (r *memoryOrders) AddItem(_ context.Context, item *entity.OrderItem) error {
	o, ok := r.store.orders[item.OrderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	item.ID = r.store.id()
	o.Items = append(o.Items, *item)
	r.store.orders[item.OrderID] = o
	return nil
}

func (r *memoryOrders) ListByUser(_ context.Context, userID int64) ([]*entity.Order, error) {
	out := make([]*entity.Order, 0)
	for _, o := range r.store.orders {
		if o.UserID == userID {
			o.Items = nil
			out = append(out, &o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryOrders) FindByIDForUser(_ context.Context, id, userID int64) (*entity.Order, error) {
	o, ok := r.store.orders[id]
	if !ok || o.UserID != userID {
		return nil, repository.ErrOrderNotFound
	}
	return &o, nil
}
