package mongodb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"treemark/internal/repository/mongodb"
	"treemark/internal/repository/repotest"
)

// Set TEST_MONGODB_URI to run against a live server. Rollback is only
// checked when TEST_MONGODB_TRANSACTIONS=true (replica set).
func TestBookmarkRepository_Contract(t *testing.T) {
	uri := os.Getenv("TEST_MONGODB_URI")
	if uri == "" {
		t.Skip("TEST_MONGODB_URI not set")
	}
	withTx := os.Getenv("TEST_MONGODB_TRANSACTIONS") == "true"

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongodb.Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	config := &mongodb.RepositoryConfig{
		Client:     client,
		Database:   "treemark_test",
		Collection: "bookmarks",
	}
	require.NoError(t, mongodb.EnsureIndexes(ctx, config))

	repotest.Run(t, func(t *testing.T) repotest.Backend {
		return repotest.Backend{
			Repo:     mongodb.NewBookmarkRepository(config),
			Tx:       mongodb.NewTransactionManager(client, withTx),
			Rollback: withTx,
		}
	})
}
