package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager runs multi-step tree mutations (cascade delete, move,
// create-and-link) as one unit where the store supports it.
type TransactionManager interface {
	// ExecTx executes fn; repository calls made with the ctx passed to fn
	// join the transaction.
	ExecTx(ctx context.Context, fn TxFn) error
}
