package storage

import (
	"github.com/stratadb/stratadb/types"
)

/*
IsValidMutation is the stateless structural check of a key/value mutation:
non-empty namespace, at least one pair, non-empty keys, insert values
non-empty and only supported action codes. It looks at nothing but the
mutation itself so admission can run it against any mempool state.
*/
func IsValidMutation(m *types.Mutation) bool {
	if m == nil || len(m.Namespace) == 0 || len(m.Pairs) == 0 {
		return false
	}
	for _, pair := range m.Pairs {
		if len(pair.Key) == 0 {
			return false
		}
		switch pair.Action {
		case types.InsertKV:
			if len(pair.Value) == 0 {
				return false
			}
		case types.DeleteKV:
		default:
			return false
		}
	}
	return true
}
