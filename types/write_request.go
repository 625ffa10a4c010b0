package types

import (
	"errors"
	"fmt"
)

type (
	// PayloadType tags the payload of a WriteRequest. The set is closed -
	// both admission and staging dispatch exhaustively over it and reject
	// anything else.
	PayloadType uint8

	/*
		WriteRequest is the signed transaction envelope as received from the
		network. Payload holds the serialized kind specific payload, the
		signature is over the payload bytes and the submitting account is
		recovered from it. The envelope is never persisted, it is consumed
		to produce a typed payload.
	*/
	WriteRequest struct {
		_           struct{} `cbor:",toarray"`
		Payload     []byte
		Signature   []byte
		PayloadType PayloadType
	}
)

const (
	KvMutationPayload PayloadType = iota + 1
	DatabaseMutationPayload
	QuerySessionPayload
)

var ErrEmptyPayload = errors.New("write request payload is empty")

func (pt PayloadType) String() string {
	switch pt {
	case KvMutationPayload:
		return "mutation"
	case DatabaseMutationPayload:
		return "database"
	case QuerySessionPayload:
		return "query_session"
	}
	return fmt.Sprintf("unknown(%d)", uint8(pt))
}

// ParseWriteRequest decodes the raw transaction bytes into an envelope.
func ParseWriteRequest(rawTx []byte) (*WriteRequest, error) {
	req := &WriteRequest{}
	if err := Cbor.Unmarshal(rawTx, req); err != nil {
		return nil, fmt.Errorf("decoding write request: %w", err)
	}
	if len(req.Payload) == 0 {
		return nil, ErrEmptyPayload
	}
	return req, nil
}

func (w *WriteRequest) Bytes() ([]byte, error) {
	return Cbor.Marshal(w)
}
