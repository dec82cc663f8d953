package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"treemark/internal/domain/repositories"
)

// TransactionManager implements repositories.TransactionManager with
// MongoDB sessions. Transactions need a replica set; on a standalone
// server construct it with enabled=false and fn runs without one.
type TransactionManager struct {
	client  *mongo.Client
	enabled bool
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(client *mongo.Client, enabled bool) repositories.TransactionManager {
	return &TransactionManager{client: client, enabled: enabled}
}

// ExecTx executes fn within a session transaction. Operations issued with
// the session context join the transaction.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if !tm.enabled || mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := tm.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
