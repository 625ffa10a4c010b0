package node

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stratadb/stratadb/app"
	testobserve "github.com/stratadb/stratadb/internal/testutils/observability"
	testtx "github.com/stratadb/stratadb/internal/testutils/transaction"
	"github.com/stratadb/stratadb/keyvaluedb/boltdb"
	"github.com/stratadb/stratadb/storage"
	"github.com/stratadb/stratadb/txbuffer"
	"github.com/stratadb/stratadb/types"
)

func initNode(t *testing.T, blockInterval time.Duration) (*Node, *storage.AuthStore) {
	t.Helper()
	obs := testobserve.Default(t)
	db, err := boltdb.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	store, err := storage.New(db, obs)
	require.NoError(t, err)
	counters, err := app.NewCounters(obs.Meter("test"))
	require.NoError(t, err)
	buffer, err := txbuffer.New(100, obs)
	require.NoError(t, err)
	node, err := New(app.New(store, counters, obs), buffer, blockInterval, obs)
	require.NoError(t, err)
	return node, store
}

func Test_Node_New(t *testing.T) {
	obs := testobserve.NOP()
	buffer, err := txbuffer.New(1, obs)
	require.NoError(t, err)

	_, err = New(nil, buffer, 0, obs)
	require.EqualError(t, err, "application is nil")

	application := initApplication(t, obs)
	_, err = New(application, nil, 0, obs)
	require.EqualError(t, err, "tx buffer is nil")

	n, err := New(application, buffer, 0, obs)
	require.NoError(t, err)
	require.Equal(t, DefaultBlockInterval, n.blockInterval)
}

func initApplication(t *testing.T, obs *testobserve.Observability) *app.Application {
	t.Helper()
	db, err := boltdb.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	store, err := storage.New(db, obs)
	require.NoError(t, err)
	counters, err := app.NewCounters(obs.Meter("test"))
	require.NoError(t, err)
	return app.New(store, counters, obs)
}

func Test_Node_SubmitTx(t *testing.T) {
	node, _ := initNode(t, time.Hour)
	key := testtx.SigningKey(t)

	t.Run("valid tx is accepted and id returned", func(t *testing.T) {
		rawTx := testtx.SignedMutation(t, key, testtx.DefaultMutation())
		txID, err := node.SubmitTx(context.Background(), rawTx)
		require.NoError(t, err)
		require.Equal(t, types.NewTxID(rawTx), txID)
	})

	t.Run("invalid tx is rejected before buffering", func(t *testing.T) {
		_, err := node.SubmitTx(context.Background(), []byte("garbage"))
		require.ErrorIs(t, err, ErrTxRejected)
	})
}

func Test_Node_Run(t *testing.T) {
	node, store := initNode(t, 20*time.Millisecond)
	key := testtx.SigningKey(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- node.Run(ctx) }()

	m := testtx.DefaultMutation()
	_, err := node.SubmitTx(ctx, testtx.SignedMutation(t, key, m))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		value, ok := store.GetValue(m.Namespace, m.Pairs[0].Key)
		return ok && string(value) == string(m.Pairs[0].Value)
	}, 2*time.Second, 10*time.Millisecond, "submitted mutation was not committed")

	// empty blocks keep the root hash stable
	root := store.RootHash()
	time.Sleep(3 * node.blockInterval)
	require.Equal(t, root, store.RootHash())

	cancel()
	require.NoError(t, <-done)
}
