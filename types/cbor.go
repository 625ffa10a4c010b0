package types

import (
	"github.com/fxamacker/cbor/v2"
)

// Cbor is the serialization used for everything that ends up in a block or
// in the authenticated state. The encoder is deterministic - every replica
// must produce identical bytes for identical values.
var Cbor = newCodec()

type codec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func newCodec() codec {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return codec{enc: enc, dec: dec}
}

func (c codec) Marshal(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c codec) Unmarshal(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}
