package redis

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iamwavecut/pasarbot/internal/db"
)

func newClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("PB_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PB_TEST_REDIS_URL is not set")
	}
	client, err := NewRedisClient(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, doc := range db.Documents {
			_ = client.rdb.Del(context.Background(), key(doc)).Err()
		}
		_ = client.Close()
	})
	return client
}

func TestTransactCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	err := client.Transact(ctx, func(tx db.Tx) error {
		return tx.Save(db.DocPoints, db.Points{"m": decimal.NewFromInt(4)})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = client.Transact(ctx, func(tx db.Tx) error {
		var points db.Points
		require.NoError(t, tx.Load(db.DocPoints, &points))
		points["m"] = decimal.Zero
		require.NoError(t, tx.Save(db.DocPoints, points))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var points db.Points
	require.NoError(t, client.Read(ctx, db.DocPoints, &points))
	require.True(t, points["m"].Equal(decimal.NewFromInt(4)))
}

func TestLoadSeesOwnPendingWrites(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	err := client.Transact(ctx, func(tx db.Tx) error {
		require.NoError(t, tx.Save(db.DocFollows, db.FollowGraph{"a_b": true}))
		var follows db.FollowGraph
		require.NoError(t, tx.Load(db.DocFollows, &follows))
		require.True(t, follows["a_b"])
		return nil
	})
	require.NoError(t, err)
}

func TestKeyPrefix(t *testing.T) {
	t.Parallel()
	require.Equal(t, "pasarbot:doc:points", key(db.DocPoints))
}
