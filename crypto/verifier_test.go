package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratadb/stratadb/types"
)

func Test_Verify(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	payload := []byte("signed payload")

	t.Run("recovers the signer", func(t *testing.T) {
		sig, err := Sign(payload, key)
		require.NoError(t, err)

		addr, err := Verify(payload, sig)
		require.NoError(t, err)
		require.Len(t, []byte(addr), types.AddressLength)
		require.True(t, addr.Eq(AddressOf(key)))
	})

	t.Run("tampered payload recovers a different account", func(t *testing.T) {
		sig, err := Sign(payload, key)
		require.NoError(t, err)

		addr, err := Verify([]byte("signed payload!"), sig)
		if err == nil {
			require.False(t, addr.Eq(AddressOf(key)))
		}
	})

	t.Run("wrong signature length", func(t *testing.T) {
		_, err := Verify(payload, []byte{1, 2, 3})
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func Test_VerifyQuerySession(t *testing.T) {
	clientKey, err := GenerateKey()
	require.NoError(t, err)

	newSession := func(t *testing.T, clientInfo, nodeInfo *types.QuerySessionInfo) *types.QuerySession {
		payload, err := types.Cbor.Marshal(clientInfo)
		require.NoError(t, err)
		sig, err := Sign(payload, clientKey)
		require.NoError(t, err)
		return &types.QuerySession{
			ChainID:         types.DevNet,
			ChainRole:       types.StorageShardChain,
			SessionPayload:  payload,
			ClientSignature: sig,
			NodeSessionInfo: nodeInfo,
		}
	}

	t.Run("valid settlement", func(t *testing.T) {
		info := &types.QuerySessionInfo{ID: 11, QueryCount: 100, BilledUnits: 100}
		client, err := VerifyQuerySession(newSession(t, info, info))
		require.NoError(t, err)
		require.True(t, client.Eq(AddressOf(clientKey)))
	})

	t.Run("no node session info", func(t *testing.T) {
		qs := newSession(t, &types.QuerySessionInfo{ID: 11, QueryCount: 1}, nil)
		_, err := VerifyQuerySession(qs)
		require.ErrorIs(t, err, ErrNoSessionInfo)
	})

	t.Run("session id mismatch", func(t *testing.T) {
		qs := newSession(t,
			&types.QuerySessionInfo{ID: 11, QueryCount: 100},
			&types.QuerySessionInfo{ID: 12, QueryCount: 100})
		_, err := VerifyQuerySession(qs)
		require.ErrorIs(t, err, ErrSessionMismatch)
	})

	t.Run("query count mismatch", func(t *testing.T) {
		qs := newSession(t,
			&types.QuerySessionInfo{ID: 11, QueryCount: 100},
			&types.QuerySessionInfo{ID: 11, QueryCount: 101})
		_, err := VerifyQuerySession(qs)
		require.ErrorIs(t, err, ErrSessionMismatch)
	})

	t.Run("overbilled session", func(t *testing.T) {
		qs := newSession(t,
			&types.QuerySessionInfo{ID: 11, QueryCount: 100},
			&types.QuerySessionInfo{ID: 11, QueryCount: 100, BilledUnits: 101})
		_, err := VerifyQuerySession(qs)
		require.ErrorIs(t, err, ErrOverbilledSession)
	})

	t.Run("bad client signature", func(t *testing.T) {
		info := &types.QuerySessionInfo{ID: 11, QueryCount: 100}
		qs := newSession(t, info, info)
		qs.ClientSignature = []byte{1, 2, 3}
		_, err := VerifyQuerySession(qs)
		require.ErrorIs(t, err, ErrInvalidSignature)
	})
}
