package crypto

import (
	"errors"
	"fmt"

	"github.com/stratadb/stratadb/types"
)

var (
	ErrNoSessionInfo     = errors.New("query session carries no node session info")
	ErrSessionMismatch   = errors.New("client and node session records do not match")
	ErrOverbilledSession = errors.New("billed units exceed the client signed query count")
)

/*
VerifyQuerySession checks the settlement proof of a query session: the
client's signature over the session payload must verify, the client signed
session record must name the same session the node is settling, and the
billed units must not exceed the query count the client signed for.

Returns the client account recovered from the client signature. The serving
node's account is recovered from the envelope signature by the caller.
*/
func VerifyQuerySession(qs *types.QuerySession) (types.Address, error) {
	if qs.NodeSessionInfo == nil {
		return nil, ErrNoSessionInfo
	}
	if qs.NodeSessionInfo.ID == 0 {
		return nil, fmt.Errorf("%w: zero session id", ErrSessionMismatch)
	}

	client, err := Verify(qs.SessionPayload, qs.ClientSignature)
	if err != nil {
		return nil, fmt.Errorf("verifying client signature: %w", err)
	}

	clientInfo := &types.QuerySessionInfo{}
	if err := types.Cbor.Unmarshal(qs.SessionPayload, clientInfo); err != nil {
		return nil, fmt.Errorf("decoding client session record: %w", err)
	}

	if clientInfo.ID != qs.NodeSessionInfo.ID {
		return nil, fmt.Errorf("%w: session id %d vs %d", ErrSessionMismatch, clientInfo.ID, qs.NodeSessionInfo.ID)
	}
	if clientInfo.QueryCount != qs.NodeSessionInfo.QueryCount {
		return nil, fmt.Errorf("%w: query count %d vs %d", ErrSessionMismatch, clientInfo.QueryCount, qs.NodeSessionInfo.QueryCount)
	}
	if qs.NodeSessionInfo.BilledUnits > clientInfo.QueryCount {
		return nil, ErrOverbilledSession
	}

	return client, nil
}
