package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratadb/stratadb/types"
)

func Test_IsValidMutation(t *testing.T) {
	valid := func() *types.Mutation {
		return &types.Mutation{
			Namespace: []byte("ns"),
			Pairs: []*types.KVPair{
				{Key: []byte("k1"), Value: []byte("v1"), Action: types.InsertKV},
				{Key: []byte("k2"), Action: types.DeleteKV},
			},
		}
	}
	require.True(t, IsValidMutation(valid()))

	var testCases = []struct {
		name   string
		mangle func(m *types.Mutation)
	}{
		{name: "empty namespace", mangle: func(m *types.Mutation) { m.Namespace = nil }},
		{name: "no pairs", mangle: func(m *types.Mutation) { m.Pairs = nil }},
		{name: "empty key", mangle: func(m *types.Mutation) { m.Pairs[0].Key = nil }},
		{name: "insert without value", mangle: func(m *types.Mutation) { m.Pairs[0].Value = nil }},
		{name: "unknown action", mangle: func(m *types.Mutation) { m.Pairs[1].Action = 99 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := valid()
			tc.mangle(m)
			require.False(t, IsValidMutation(m))
		})
	}

	require.False(t, IsValidMutation(nil))
}
