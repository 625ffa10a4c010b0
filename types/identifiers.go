package types

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type (
	// Address is a 20 byte identity - either an account recovered from a
	// transaction signature or the derived address of a created database.
	Address []byte

	// TxID is the content derived transaction identifier - SHA-256 over the
	// raw transaction bytes as delivered by the consensus engine. It is the
	// same on every replica for the same transaction.
	TxID []byte
)

const AddressLength = 20

// NewTxID computes the transaction identifier for the raw transaction bytes.
func NewTxID(rawTx []byte) TxID {
	h := sha256.Sum256(rawTx)
	return h[:]
}

func (id TxID) String() string {
	return fmt.Sprintf("%X", []byte(id))
}

func (id TxID) Eq(other TxID) bool {
	return bytes.Equal(id, other)
}

func (id TxID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(id)), nil
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a)
}

func (a Address) Eq(other Address) bool {
	return bytes.Equal(a, other)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}
