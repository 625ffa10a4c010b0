package storage

import (
	"encoding/binary"
)

/*
Key layout of the authenticated state space. Every live entry is identified
by a single flat key; the Merkle tree is built over these keys in
lexicographic order, so the layout must be deterministic and prefix free
between sub-spaces.

	kv <len(ns)> <ns> <key> - key/value entries, namespace length prefixed
	db <address>            - database schema records
	qs <address>            - per node query session credit records
*/
const (
	prefixKV     = "kv"
	prefixDB     = "db"
	prefixCredit = "qs"
)

// the full bolt key of a state entry; state entries share the bucket with
// the block state record
const entryPrefix = "e/"

// blockStateKey is the bolt key of the persisted block state.
var blockStateKey = []byte("blockstate")

func kvEntryKey(namespace, key []byte) string {
	buf := make([]byte, 0, len(prefixKV)+binary.MaxVarintLen64+len(namespace)+len(key))
	buf = append(buf, prefixKV...)
	buf = binary.AppendUvarint(buf, uint64(len(namespace)))
	buf = append(buf, namespace...)
	buf = append(buf, key...)
	return string(buf)
}

func dbEntryKey(address []byte) string {
	return prefixDB + string(address)
}

func creditEntryKey(address []byte) string {
	return prefixCredit + string(address)
}
