package keyvaluedb

import (
	"errors"
	"reflect"
)

type (
	// Reader interface for DB
	Reader interface {
		// Read reads the value for key stored in the DB
		Read(key []byte, value any) (bool, error)
	}

	// Writer interface for DB
	Writer interface {
		// Write inserts the given value into the DB.
		Write(key []byte, value any) error
		// Delete removes the key from the key-value data store.
		Delete(key []byte) error
	}

	// DBTx interface for database transactions.
	// NB! all transactions MUST be completed by either calling Commit() or Rollback()
	// which releases the transaction. Only one read-write transaction is allowed at a time.
	DBTx interface {
		StartTx() (DBTransaction, error)
	}

	// KeyValueDB is the full interface the node's durable stores are built on.
	KeyValueDB interface {
		Reader
		Writer
		Iterable
		DBTx
	}

	Iterator interface {
		// Next moves the iterator to the next key value pair
		Next()
		// Valid returns state of the iterator, false when exhausted
		Valid() bool
		// Key returns the key of the current key/value pair, or nil if not valid.
		Key() []byte
		// Value decodes the value of the current key/value pair into "value".
		Value(value any) error
		// Close releases associated resources. Close should always succeed and can
		// be called multiple times without causing error.
		Close() error
	}

	// Iterable wraps the iterator constructors of a backing data store.
	Iterable interface {
		// First creates a binary-alphabetical forward iterator starting with the first item.
		// If the DB is empty the returned iterator is not valid (it.Valid() == false).
		// NB! when done iterator MUST be released with Close() or the next DB operation deadlocks.
		First() Iterator
		// Find returns a forward iterator positioned at the closest binary-alphabetical match.
		// If there is no match or the DB is empty the returned iterator is not valid.
		// NB! when done iterator MUST be released with Close() or the next DB operation deadlocks.
		Find(key []byte) Iterator
	}

	// DBTransaction is a key value database transaction.
	DBTransaction interface {
		Writer
		// Commit commits all pending changes
		Commit() error
		// Rollback reverts everything and nothing is changed
		Rollback() error
	}
)

var (
	errInvalidKey = errors.New("invalid key")
	errValueIsNil = errors.New("value is nil")
)

func CheckKey(key []byte) error {
	if len(key) == 0 {
		return errInvalidKey
	}
	return nil
}

func CheckValue(val any) error {
	if rv := reflect.ValueOf(val); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return errValueIsNil
	}
	return nil
}

func CheckKeyAndValue(key []byte, val any) error {
	if err := CheckKey(key); err != nil {
		return err
	}
	return CheckValue(val)
}
