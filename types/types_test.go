package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NewTxID(t *testing.T) {
	raw := []byte("raw transaction bytes")

	id1 := NewTxID(raw)
	id2 := NewTxID(raw)
	require.Len(t, []byte(id1), 32)
	require.True(t, id1.Eq(id2), "same input must produce the same tx id")

	id3 := NewTxID([]byte("raw transaction bytes!"))
	require.False(t, id1.Eq(id3))
}

func Test_Address_String(t *testing.T) {
	addr := Address{0xde, 0xad, 0xbe, 0xef}
	require.Equal(t, "0xdeadbeef", addr.String())

	txt, err := addr.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "0xdeadbeef", string(txt))
}

func Test_ParseWriteRequest(t *testing.T) {
	t.Run("garbage bytes", func(t *testing.T) {
		req, err := ParseWriteRequest([]byte{0xff, 0x00, 0x01})
		require.ErrorContains(t, err, "decoding write request")
		require.Nil(t, req)
	})

	t.Run("empty payload", func(t *testing.T) {
		raw, err := (&WriteRequest{Signature: []byte{1}, PayloadType: KvMutationPayload}).Bytes()
		require.NoError(t, err)
		req, err := ParseWriteRequest(raw)
		require.ErrorIs(t, err, ErrEmptyPayload)
		require.Nil(t, req)
	})

	t.Run("round trip", func(t *testing.T) {
		m := &Mutation{
			Namespace: []byte("ns1"),
			Pairs:     []*KVPair{{Key: []byte("k"), Value: []byte("v"), Action: InsertKV}},
			Nonce:     7,
			ChainID:   DevNet,
			ChainRole: StorageShardChain,
		}
		payload, err := m.Bytes()
		require.NoError(t, err)

		raw, err := (&WriteRequest{Payload: payload, Signature: []byte{1, 2}, PayloadType: KvMutationPayload}).Bytes()
		require.NoError(t, err)

		req, err := ParseWriteRequest(raw)
		require.NoError(t, err)
		require.Equal(t, KvMutationPayload, req.PayloadType)

		m2, err := ParseMutation(req.Payload)
		require.NoError(t, err)
		require.Equal(t, m, m2)
	})
}

func Test_Cbor_deterministic(t *testing.T) {
	dm := &DatabaseMutation{
		Meta:   &BroadcastMeta{Nonce: 1, ChainID: DevNet, ChainRole: StorageShardChain},
		Action: CreateDatabase,
		Collections: []*CollectionDef{
			{Name: "books", Indexes: []*Index{{Name: "by_author", Fields: []string{"author"}}}},
		},
	}
	b1, err := dm.Bytes()
	require.NoError(t, err)
	b2, err := dm.Bytes()
	require.NoError(t, err)
	require.Equal(t, b1, b2)

	dm2, err := ParseDatabaseMutation(b1)
	require.NoError(t, err)
	require.Equal(t, dm, dm2)
}
