package types

import (
	"fmt"
)

type (
	// DatabaseAction is the schema operation of a DatabaseMutation.
	DatabaseAction uint8

	// BroadcastMeta is required metadata of every database mutation - a
	// database mutation without it is rejected at admission.
	BroadcastMeta struct {
		_         struct{} `cbor:",toarray"`
		Nonce     uint64
		ChainID   ChainID
		ChainRole ChainRole
	}

	// Index is a named secondary index over the listed document fields.
	Index struct {
		_      struct{} `cbor:",toarray"`
		Name   string
		Fields []string
	}

	CollectionDef struct {
		_       struct{} `cbor:",toarray"`
		Name    string
		Indexes []*Index
	}

	/*
		DatabaseMutation is a database schema mutation: either creation of a
		new database (DbAddress empty, the address is derived from submitter
		and nonce) or addition of collections to an existing one (DbAddress
		names the target).
	*/
	DatabaseMutation struct {
		_           struct{} `cbor:",toarray"`
		Meta        *BroadcastMeta
		Action      DatabaseAction
		DbAddress   Address
		Collections []*CollectionDef
	}
)

const (
	CreateDatabase DatabaseAction = iota + 1
	AddCollection
)

func (a DatabaseAction) String() string {
	switch a {
	case CreateDatabase:
		return "create_database"
	case AddCollection:
		return "add_collection"
	}
	return fmt.Sprintf("unknown(%d)", uint8(a))
}

// ParseDatabaseMutation decodes a WriteRequest payload of kind DatabaseMutationPayload.
func ParseDatabaseMutation(payload []byte) (*DatabaseMutation, error) {
	dm := &DatabaseMutation{}
	if err := Cbor.Unmarshal(payload, dm); err != nil {
		return nil, fmt.Errorf("decoding database mutation: %w", err)
	}
	return dm, nil
}

func (dm *DatabaseMutation) Bytes() ([]byte, error) {
	return Cbor.Marshal(dm)
}
