package transaction

import (
	"crypto/ecdsa"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratadb/stratadb/crypto"
	"github.com/stratadb/stratadb/types"
)

// SigningKey creates a fresh secp256k1 key for the test.
func SigningKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key
}

// Signed wraps "payload" into a raw signed envelope of the given kind.
func Signed(t *testing.T, key *ecdsa.PrivateKey, payloadType types.PayloadType, payload []byte) []byte {
	t.Helper()
	sig, err := crypto.Sign(payload, key)
	require.NoError(t, err)
	rawTx, err := (&types.WriteRequest{Payload: payload, Signature: sig, PayloadType: payloadType}).Bytes()
	require.NoError(t, err)
	return rawTx
}

func SignedMutation(t *testing.T, key *ecdsa.PrivateKey, m *types.Mutation) []byte {
	t.Helper()
	payload, err := m.Bytes()
	require.NoError(t, err)
	return Signed(t, key, types.KvMutationPayload, payload)
}

func SignedDatabaseMutation(t *testing.T, key *ecdsa.PrivateKey, dm *types.DatabaseMutation) []byte {
	t.Helper()
	payload, err := dm.Bytes()
	require.NoError(t, err)
	return Signed(t, key, types.DatabaseMutationPayload, payload)
}

// QuerySession builds a settlement whose session payload is signed by
// "clientKey" and whose node side record matches the client record.
func QuerySession(t *testing.T, clientKey *ecdsa.PrivateKey, info *types.QuerySessionInfo) *types.QuerySession {
	t.Helper()
	sessionPayload, err := types.Cbor.Marshal(info)
	require.NoError(t, err)
	clientSig, err := crypto.Sign(sessionPayload, clientKey)
	require.NoError(t, err)
	nodeInfo := *info
	return &types.QuerySession{
		Nonce:           1,
		ChainID:         types.DevNet,
		ChainRole:       types.StorageShardChain,
		SessionPayload:  sessionPayload,
		ClientSignature: clientSig,
		NodeSessionInfo: &nodeInfo,
	}
}

func SignedQuerySession(t *testing.T, nodeKey *ecdsa.PrivateKey, qs *types.QuerySession) []byte {
	t.Helper()
	payload, err := qs.Bytes()
	require.NoError(t, err)
	return Signed(t, nodeKey, types.QuerySessionPayload, payload)
}

// DefaultMutation is a minimal valid key/value mutation for tests.
func DefaultMutation() *types.Mutation {
	return &types.Mutation{
		Namespace: []byte("ns1"),
		Pairs:     []*types.KVPair{{Key: []byte("key1"), Value: []byte("value1"), Action: types.InsertKV}},
		Nonce:     1,
		ChainID:   types.DevNet,
		ChainRole: types.StorageShardChain,
		GasPrice:  1,
		GasLimit:  100,
	}
}
