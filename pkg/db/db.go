// Package db defines the storage-neutral transaction contract shared by
// the memory and mongo backends.
package db

import "context"

// TransactionFunc runs inside a transaction boundary. With the mongo
// backend ctx is a session context and every store call made through it
// joins the same multi-document transaction; with the memory backend the
// boundary is the per-property critical section and fn runs directly.
type TransactionFunc func(ctx context.Context) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type noopTransactionManager struct{}

// NewNoopTransactionManager returns a manager that simply invokes fn.
// The memory store mutates under its own lock, so there is nothing to
// commit or roll back at this level.
func NewNoopTransactionManager() TransactionManager {
	return noopTransactionManager{}
}

func (noopTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	return fn(ctx)
}
