package storage

import (
	"crypto/sha256"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	testobserve "github.com/stratadb/stratadb/internal/testutils/observability"
	"github.com/stratadb/stratadb/keyvaluedb/boltdb"
	"github.com/stratadb/stratadb/types"
)

func initAuthStore(t *testing.T) *AuthStore {
	t.Helper()
	db, err := boltdb.New(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	store, err := New(db, testobserve.Default(t))
	require.NoError(t, err)
	return store
}

func testAddress(b byte) types.Address {
	addr := make(types.Address, types.AddressLength)
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func testTxID(b byte) types.TxID {
	return types.NewTxID([]byte{b})
}

func Test_AuthStore_ApplyMutation(t *testing.T) {
	submitter := testAddress(1)

	t.Run("invalid mutation is rejected", func(t *testing.T) {
		store := initAuthStore(t)
		_, _, err := store.ApplyMutation(submitter, testTxID(1), &types.Mutation{})
		require.ErrorIs(t, err, ErrInvalidMutation)
	})

	t.Run("insert is visible after commit only", func(t *testing.T) {
		store := initAuthStore(t)
		store.BeginBlock(1, 1000)
		gas, written, err := store.ApplyMutation(submitter, testTxID(1), &types.Mutation{
			Namespace: []byte("ns"),
			Pairs:     []*types.KVPair{{Key: []byte("k1"), Value: []byte("v1"), Action: types.InsertKV}},
		})
		require.NoError(t, err)
		require.NotZero(t, gas)
		require.NotZero(t, written)

		_, ok := store.GetValue([]byte("ns"), []byte("k1"))
		require.False(t, ok, "staged write must not be readable before commit")

		root, err := store.Commit()
		require.NoError(t, err)
		require.Len(t, root, sha256.Size)

		value, ok := store.GetValue([]byte("ns"), []byte("k1"))
		require.True(t, ok)
		require.Equal(t, []byte("v1"), value)
	})

	t.Run("delete removes the entry", func(t *testing.T) {
		store := initAuthStore(t)
		store.BeginBlock(1, 1000)
		_, _, err := store.ApplyMutation(submitter, testTxID(1), &types.Mutation{
			Namespace: []byte("ns"),
			Pairs:     []*types.KVPair{{Key: []byte("k1"), Value: []byte("v1"), Action: types.InsertKV}},
		})
		require.NoError(t, err)
		_, err = store.Commit()
		require.NoError(t, err)

		store.BeginBlock(2, 2000)
		gas, written, err := store.ApplyMutation(submitter, testTxID(2), &types.Mutation{
			Namespace: []byte("ns"),
			Pairs:     []*types.KVPair{{Key: []byte("k1"), Action: types.DeleteKV}},
		})
		require.NoError(t, err)
		require.EqualValues(t, 1, gas)
		require.Zero(t, written)
		_, err = store.Commit()
		require.NoError(t, err)

		_, ok := store.GetValue([]byte("ns"), []byte("k1"))
		require.False(t, ok)
	})

	t.Run("namespaces do not collide", func(t *testing.T) {
		store := initAuthStore(t)
		store.BeginBlock(1, 1000)
		// "ab"+"c" and "a"+"bc" must land on different keys
		_, _, err := store.ApplyMutation(submitter, testTxID(1), &types.Mutation{
			Namespace: []byte("ab"),
			Pairs:     []*types.KVPair{{Key: []byte("c"), Value: []byte("first"), Action: types.InsertKV}},
		})
		require.NoError(t, err)
		_, _, err = store.ApplyMutation(submitter, testTxID(2), &types.Mutation{
			Namespace: []byte("a"),
			Pairs:     []*types.KVPair{{Key: []byte("bc"), Value: []byte("second"), Action: types.InsertKV}},
		})
		require.NoError(t, err)
		_, err = store.Commit()
		require.NoError(t, err)

		value, ok := store.GetValue([]byte("ab"), []byte("c"))
		require.True(t, ok)
		require.Equal(t, []byte("first"), value)
		value, ok = store.GetValue([]byte("a"), []byte("bc"))
		require.True(t, ok)
		require.Equal(t, []byte("second"), value)
	})
}

func Test_AuthStore_ApplyDatabase(t *testing.T) {
	sender := testAddress(2)

	t.Run("create and read back", func(t *testing.T) {
		store := initAuthStore(t)
		store.BeginBlock(1, 1000)
		dm := &types.DatabaseMutation{
			Action:      types.CreateDatabase,
			Collections: []*types.CollectionDef{{Name: "books"}},
		}
		require.NoError(t, store.ApplyDatabase(sender, 7, testTxID(1), dm))
		_, err := store.Commit()
		require.NoError(t, err)

		record, err := store.GetDatabase(DeriveDatabaseAddress(sender, 7))
		require.NoError(t, err)
		require.Equal(t, sender, record.Sender)
		require.EqualValues(t, 7, record.Nonce)
		require.Len(t, record.Collections, 1)
		require.Equal(t, "books", record.Collections[0].Name)
	})

	t.Run("duplicate create fails", func(t *testing.T) {
		store := initAuthStore(t)
		store.BeginBlock(1, 1000)
		dm := &types.DatabaseMutation{Action: types.CreateDatabase}
		require.NoError(t, store.ApplyDatabase(sender, 7, testTxID(1), dm))
		// second create with the same sender and nonce, staged in the same block
		err := store.ApplyDatabase(sender, 7, testTxID(2), dm)
		require.ErrorIs(t, err, ErrDatabaseExists)
	})

	t.Run("add collection to missing database fails", func(t *testing.T) {
		store := initAuthStore(t)
		store.BeginBlock(1, 1000)
		err := store.ApplyDatabase(sender, 7, testTxID(1), &types.DatabaseMutation{
			Action:    types.AddCollection,
			DbAddress: testAddress(9),
		})
		require.ErrorIs(t, err, ErrDatabaseNotFound)
	})

	t.Run("add collection", func(t *testing.T) {
		store := initAuthStore(t)
		store.BeginBlock(1, 1000)
		require.NoError(t, store.ApplyDatabase(sender, 7, testTxID(1), &types.DatabaseMutation{
			Action:      types.CreateDatabase,
			Collections: []*types.CollectionDef{{Name: "books"}},
		}))
		addr := DeriveDatabaseAddress(sender, 7)
		require.NoError(t, store.ApplyDatabase(sender, 8, testTxID(2), &types.DatabaseMutation{
			Action:      types.AddCollection,
			DbAddress:   addr,
			Collections: []*types.CollectionDef{{Name: "authors"}},
		}))
		// duplicate collection name is rejected
		err := store.ApplyDatabase(sender, 9, testTxID(3), &types.DatabaseMutation{
			Action:      types.AddCollection,
			DbAddress:   addr,
			Collections: []*types.CollectionDef{{Name: "books"}},
		})
		require.ErrorIs(t, err, ErrCollectionExists)

		_, err = store.Commit()
		require.NoError(t, err)
		record, err := store.GetDatabase(addr)
		require.NoError(t, err)
		require.Len(t, record.Collections, 2)
	})
}

func Test_AuthStore_ApplyQuerySession(t *testing.T) {
	client, node := testAddress(3), testAddress(4)

	store := initAuthStore(t)
	store.BeginBlock(1, 1000)
	require.NoError(t, store.ApplyQuerySession(client, node, testTxID(1), &types.QuerySessionInfo{ID: 1, QueryCount: 10, BilledUnits: 8}))
	require.NoError(t, store.ApplyQuerySession(client, node, testTxID(2), &types.QuerySessionInfo{ID: 2, QueryCount: 5, BilledUnits: 5}))
	_, err := store.Commit()
	require.NoError(t, err)

	credit, err := store.GetCredit(node)
	require.NoError(t, err)
	require.EqualValues(t, 2, credit.Sessions)
	require.EqualValues(t, 15, credit.Queries)
	require.EqualValues(t, 13, credit.Units)

	// unknown node reads back as the zero record
	credit, err = store.GetCredit(testAddress(5))
	require.NoError(t, err)
	require.Zero(t, credit.Sessions)
}

func Test_AuthStore_Commit(t *testing.T) {
	submitter := testAddress(1)

	t.Run("empty commit keeps the root", func(t *testing.T) {
		store := initAuthStore(t)
		store.BeginBlock(1, 1000)
		_, _, err := store.ApplyMutation(submitter, testTxID(1), &types.Mutation{
			Namespace: []byte("ns"),
			Pairs:     []*types.KVPair{{Key: []byte("k"), Value: []byte("v"), Action: types.InsertKV}},
		})
		require.NoError(t, err)
		root, err := store.Commit()
		require.NoError(t, err)

		store.BeginBlock(2, 2000)
		root2, err := store.Commit()
		require.NoError(t, err)
		require.Equal(t, root, root2)
		require.EqualValues(t, 2, store.GetLastBlockState().BlockHeight)
	})

	t.Run("same entries produce the same root", func(t *testing.T) {
		mutation := func(key, value string) *types.Mutation {
			return &types.Mutation{
				Namespace: []byte("ns"),
				Pairs:     []*types.KVPair{{Key: []byte(key), Value: []byte(value), Action: types.InsertKV}},
			}
		}
		// two stores, same writes in different order
		a, b := initAuthStore(t), initAuthStore(t)
		a.BeginBlock(1, 1000)
		b.BeginBlock(1, 1000)
		for _, m := range []*types.Mutation{mutation("k1", "v1"), mutation("k2", "v2")} {
			_, _, err := a.ApplyMutation(submitter, testTxID(1), m)
			require.NoError(t, err)
		}
		for _, m := range []*types.Mutation{mutation("k2", "v2"), mutation("k1", "v1")} {
			_, _, err := b.ApplyMutation(submitter, testTxID(1), m)
			require.NoError(t, err)
		}
		rootA, err := a.Commit()
		require.NoError(t, err)
		rootB, err := b.Commit()
		require.NoError(t, err)
		require.Equal(t, rootA, rootB)
	})

	t.Run("different entries produce different roots", func(t *testing.T) {
		a, b := initAuthStore(t), initAuthStore(t)
		a.BeginBlock(1, 1000)
		b.BeginBlock(1, 1000)
		_, _, err := a.ApplyMutation(submitter, testTxID(1), &types.Mutation{
			Namespace: []byte("ns"),
			Pairs:     []*types.KVPair{{Key: []byte("k"), Value: []byte("v1"), Action: types.InsertKV}},
		})
		require.NoError(t, err)
		_, _, err = b.ApplyMutation(submitter, testTxID(1), &types.Mutation{
			Namespace: []byte("ns"),
			Pairs:     []*types.KVPair{{Key: []byte("k"), Value: []byte("v2"), Action: types.InsertKV}},
		})
		require.NoError(t, err)
		rootA, err := a.Commit()
		require.NoError(t, err)
		rootB, err := b.Commit()
		require.NoError(t, err)
		require.NotEqual(t, rootA, rootB)
	})
}

func Test_AuthStore_Restart(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "state.db")
	submitter := testAddress(1)

	db, err := boltdb.New(dbFile)
	require.NoError(t, err)
	store, err := New(db, testobserve.Default(t))
	require.NoError(t, err)
	store.BeginBlock(1, 1000)
	_, _, err = store.ApplyMutation(submitter, testTxID(1), &types.Mutation{
		Namespace: []byte("ns"),
		Pairs:     []*types.KVPair{{Key: []byte("k"), Value: []byte("v"), Action: types.InsertKV}},
	})
	require.NoError(t, err)
	root, err := store.Commit()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = boltdb.New(dbFile)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()
	store, err = New(db, testobserve.Default(t))
	require.NoError(t, err)

	require.Equal(t, root, store.RootHash())
	state := store.GetLastBlockState()
	require.EqualValues(t, 1, state.BlockHeight)
	require.EqualValues(t, 1000, state.BlockTime)
	value, ok := store.GetValue([]byte("ns"), []byte("k"))
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)
}

func Test_DeriveDatabaseAddress(t *testing.T) {
	sender := testAddress(1)
	addr := DeriveDatabaseAddress(sender, 1)
	require.Len(t, addr, types.AddressLength)
	require.Equal(t, addr, DeriveDatabaseAddress(sender, 1))
	require.NotEqual(t, addr, DeriveDatabaseAddress(sender, 2))
	require.NotEqual(t, addr, DeriveDatabaseAddress(testAddress(2), 1))
}
