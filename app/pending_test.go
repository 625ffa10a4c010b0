package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_pendingQueue(t *testing.T) {
	t.Run("drain preserves FIFO order and empties the queue", func(t *testing.T) {
		q := pendingQueue[int]{}
		for i := range 5 {
			q.push(i)
		}
		require.Equal(t, []int{0, 1, 2, 3, 4}, q.drain())
		require.Empty(t, q.drain())
		require.Zero(t, q.size())
	})

	t.Run("concurrent pushes are all retained", func(t *testing.T) {
		const pushers, perPusher = 8, 100
		q := pendingQueue[int]{}
		var wg sync.WaitGroup
		for range pushers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perPusher {
					q.push(i)
				}
			}()
		}
		wg.Wait()
		require.Len(t, q.drain(), pushers*perPusher)
	})
}
