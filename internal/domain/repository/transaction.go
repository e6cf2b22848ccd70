package repository

import "context"

// TransactionManager defines the interface for managing database transactions.
// This allows the use case layer to handle transactions without depending on a specific DB driver like GORM.
type TransactionManager interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error or panics, the transaction is rolled back. Otherwise, it's committed.
	// A cancelled ctx aborts the transaction as well.
	Execute(ctx context.Context, fn func(txRepoFactory RepositoryFactory) error) error
}

// RepositoryFactory hands out repositories bound to one connection or transaction.
type RepositoryFactory interface {
	// UserRepo returns a UserRepository bound to the current connection.
	UserRepo() UserRepository

	// ProductRepo returns a ProductRepository bound to the current connection.
	ProductRepo() ProductRepository

	// OrderRepo returns an OrderRepository bound to the current connection.
	OrderRepo() OrderRepository
}
