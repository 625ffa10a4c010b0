package crypto

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/stratadb/stratadb/types"
)

// signatures are 65 byte [R || S || V] secp256k1 signatures over the
// SHA-256 digest of the signed payload
const signatureLength = 65

var ErrInvalidSignature = errors.New("invalid signature")

/*
Verify recovers the signer of "payload" from "sig". It is the only way an
account identity enters the system - there are no account registrations,
an account exists by virtue of having signed something.
*/
func Verify(payload, sig []byte) (types.Address, error) {
	if len(sig) != signatureLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, signatureLength, len(sig))
	}
	digest := sha256.Sum256(payload)
	pubKey, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	addr := ethcrypto.PubkeyToAddress(*pubKey)
	return types.Address(addr.Bytes()), nil
}

// Sign signs "payload" so that Verify recovers the signer's address.
func Sign(payload []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(payload)
	sig, err := ethcrypto.Sign(digest[:], key)
	if err != nil {
		return nil, fmt.Errorf("signing payload: %w", err)
	}
	return sig, nil
}

// AddressOf returns the address Verify would recover for signatures made
// with the given key.
func AddressOf(key *ecdsa.PrivateKey) types.Address {
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)
	return types.Address(addr.Bytes())
}

// GenerateKey creates a new secp256k1 signing key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ethcrypto.GenerateKey()
}
