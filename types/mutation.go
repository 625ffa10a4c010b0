package types

import (
	"fmt"
)

type (
	// KVAction is the per pair action code of a Mutation.
	KVAction uint8

	// ChainID identifies the network the transaction was built for.
	ChainID uint32

	// ChainRole identifies the function of the chain within the network.
	ChainRole uint32

	KVPair struct {
		_      struct{} `cbor:",toarray"`
		Key    []byte
		Value  []byte
		Action KVAction
	}

	/*
		Mutation is a namespace scoped batch of key/value writes. The pairs
		are applied in order, later writes to the same key win. Mutations
		carry no schema.
	*/
	Mutation struct {
		_         struct{} `cbor:",toarray"`
		Namespace []byte
		Pairs     []*KVPair
		Nonce     uint64
		ChainID   ChainID
		ChainRole ChainRole
		GasPrice  uint64
		GasLimit  uint64
	}
)

const (
	InsertKV KVAction = iota + 1
	DeleteKV
)

const (
	MainNet ChainID = iota + 100
	TestNet
	DevNet
)

const (
	SettlementChain ChainRole = iota + 1
	StorageShardChain
)

// ParseMutation decodes a WriteRequest payload of kind KvMutationPayload.
func ParseMutation(payload []byte) (*Mutation, error) {
	m := &Mutation{}
	if err := Cbor.Unmarshal(payload, m); err != nil {
		return nil, fmt.Errorf("decoding mutation: %w", err)
	}
	return m, nil
}

func (m *Mutation) Bytes() ([]byte, error) {
	return Cbor.Marshal(m)
}
