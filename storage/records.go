package storage

import (
	"crypto/sha256"

	"github.com/stratadb/stratadb/types"
	"github.com/stratadb/stratadb/util"
)

type (
	// BlockState is the durable summary of all commits to date. It survives
	// process restarts and is the source of truth for the informational
	// handshake with the consensus engine.
	BlockState struct {
		_           struct{} `cbor:",toarray"`
		BlockHeight uint64
		BlockTime   uint64
		RootHash    []byte
	}

	// DatabaseRecord is the authenticated state entry of a created database.
	DatabaseRecord struct {
		_           struct{} `cbor:",toarray"`
		Sender      types.Address
		Nonce       uint64
		TxID        types.TxID
		Collections []*types.CollectionDef
	}

	// CreditRecord accumulates the settled query sessions of a serving node.
	CreditRecord struct {
		_        struct{} `cbor:",toarray"`
		Sessions uint64
		Queries  uint64
		Units    uint64
	}
)

/*
DeriveDatabaseAddress computes the address of a database created by "sender"
with the given mutation nonce. The derivation is content based so every
replica assigns the same address without coordination.
*/
func DeriveDatabaseAddress(sender types.Address, nonce uint64) types.Address {
	h := sha256.New()
	h.Write([]byte(prefixDB))
	h.Write(sender)
	h.Write(util.Uint64ToBytes(nonce))
	sum := h.Sum(nil)
	return types.Address(sum[len(sum)-types.AddressLength:])
}
