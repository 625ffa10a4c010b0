package app

import (
	"sync"

	"github.com/stratadb/stratadb/types"
)

type (
	// pendingMutation is an admitted key/value mutation staged for commit.
	pendingMutation struct {
		submitter types.Address
		txID      types.TxID
		mutation  *types.Mutation
	}

	// pendingDatabase is an admitted schema mutation staged for commit.
	pendingDatabase struct {
		sender   types.Address
		nonce    uint64
		txID     types.TxID
		mutation *types.DatabaseMutation
	}

	// pendingQuerySession is an admitted settlement staged for commit. Two
	// accounts because two parties are economically involved.
	pendingQuerySession struct {
		client types.Address
		node   types.Address
		txID   types.TxID
		info   *types.QuerySessionInfo
	}

	/*
		pendingQueue is an insertion ordered staging queue scoped to the
		in-flight block. The lock covers enqueue and drain only, never the
		apply loop that consumes the drained records.
	*/
	pendingQueue[T any] struct {
		mutex   sync.Mutex
		records []T
	}
)

func (q *pendingQueue[T]) push(record T) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.records = append(q.records, record)
}

// drain empties the queue and returns its contents in FIFO order.
func (q *pendingQueue[T]) drain() []T {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	records := q.records
	q.records = nil
	return records
}

func (q *pendingQueue[T]) size() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.records)
}
