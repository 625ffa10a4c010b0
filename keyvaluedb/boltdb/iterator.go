package boltdb

import (
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

/*
Itr is a forward iterator over a Bolt bucket. It holds a read transaction
open for its whole lifetime - it MUST be released with Close() or the next
write to the DB will deadlock.
*/
type Itr struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	decoder DecodeFn

	key   []byte
	value []byte
}

func NewIterator(db *bolt.DB, bucket []byte, d DecodeFn) *Itr {
	tx, err := db.Begin(false)
	if err != nil {
		return &Itr{decoder: d}
	}
	return &Itr{
		tx:      tx,
		cursor:  tx.Bucket(bucket).Cursor(),
		decoder: d,
	}
}

func (it *Itr) first() {
	if it.cursor == nil {
		return
	}
	it.key, it.value = it.cursor.First()
}

func (it *Itr) seek(key []byte) {
	if it.cursor == nil {
		return
	}
	it.key, it.value = it.cursor.Seek(key)
}

func (it *Itr) Next() {
	if it.cursor == nil {
		return
	}
	it.key, it.value = it.cursor.Next()
}

func (it *Itr) Valid() bool {
	return it.key != nil
}

func (it *Itr) Key() []byte {
	return it.key
}

func (it *Itr) Value(value any) error {
	if !it.Valid() {
		return errors.New("iterator is not valid")
	}
	if err := it.decoder(it.value, value); err != nil {
		return fmt.Errorf("decoding iterator value: %w", err)
	}
	return nil
}

func (it *Itr) Close() error {
	if it.tx == nil {
		return nil
	}
	err := it.tx.Rollback()
	it.tx, it.cursor, it.key, it.value = nil, nil, nil, nil
	return err
}
