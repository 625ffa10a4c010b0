package types

import (
	"fmt"
)

type (
	// QuerySessionInfo describes a closed query session - how many queries
	// the node answered and how many units it bills for them.
	QuerySessionInfo struct {
		_           struct{} `cbor:",toarray"`
		ID          uint64
		StartTime   int64
		QueryCount  uint64
		BilledUnits uint64
	}

	/*
		QuerySession is the settlement payload submitted by the serving node
		to get credited for a closed query session. SessionPayload is the
		client signed QuerySessionInfo (ClientSignature is over it, the
		client account is recovered from it); NodeSessionInfo is the node's
		own accounting of the same session. The two must agree before the
		settlement is admitted.
	*/
	QuerySession struct {
		_               struct{} `cbor:",toarray"`
		Nonce           uint64
		ChainID         ChainID
		ChainRole       ChainRole
		SessionPayload  []byte
		ClientSignature []byte
		NodeSessionInfo *QuerySessionInfo
	}
)

// ParseQuerySession decodes a WriteRequest payload of kind QuerySessionPayload.
func ParseQuerySession(payload []byte) (*QuerySession, error) {
	qs := &QuerySession{}
	if err := Cbor.Unmarshal(payload, qs); err != nil {
		return nil, fmt.Errorf("decoding query session: %w", err)
	}
	return qs, nil
}

func (qs *QuerySession) Bytes() ([]byte, error) {
	return Cbor.Marshal(qs)
}
