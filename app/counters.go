package app

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
)

type (
	/*
		Counters are the process wide node statistics. They only increase
		and only the commit path increments them, one increment per
		successfully applied record. Reads are lock free and may observe
		the counters mid-block.
	*/
	Counters struct {
		storageBytes  atomic.Uint64
		mutations     atomic.Uint64
		querySessions atomic.Uint64
	}

	// CountersSnapshot is a point in time read of the counters. No cross
	// counter atomicity is provided.
	CountersSnapshot struct {
		TotalStorageBytes  uint64 `json:"totalStorageBytes"`
		TotalMutations     uint64 `json:"totalMutations"`
		TotalQuerySessions uint64 `json:"totalQuerySessions"`
	}
)

func NewCounters(mtr metric.Meter) (*Counters, error) {
	c := &Counters{}
	if err := c.initMetrics(mtr); err != nil {
		return nil, fmt.Errorf("registering counter metrics: %w", err)
	}
	return c, nil
}

func (c *Counters) initMetrics(mtr metric.Meter) (err error) {
	if _, err = mtr.Int64ObservableCounter(
		"storage.bytes",
		metric.WithDescription("Total number of bytes written into the authenticated store"),
		metric.WithUnit("By"),
		metric.WithInt64Callback(func(ctx context.Context, io metric.Int64Observer) error {
			io.Observe(int64(c.storageBytes.Load()))
			return nil
		}),
	); err != nil {
		return fmt.Errorf("creating storage bytes counter: %w", err)
	}

	if _, err = mtr.Int64ObservableCounter(
		"mutation.count",
		metric.WithDescription("Total number of applied key/value mutations"),
		metric.WithInt64Callback(func(ctx context.Context, io metric.Int64Observer) error {
			io.Observe(int64(c.mutations.Load()))
			return nil
		}),
	); err != nil {
		return fmt.Errorf("creating mutation counter: %w", err)
	}

	if _, err = mtr.Int64ObservableCounter(
		"session.count",
		metric.WithDescription("Total number of settled query sessions"),
		metric.WithInt64Callback(func(ctx context.Context, io metric.Int64Observer) error {
			io.Observe(int64(c.querySessions.Load()))
			return nil
		}),
	); err != nil {
		return fmt.Errorf("creating query session counter: %w", err)
	}
	return nil
}

// AddMutation records one applied mutation and the bytes it wrote.
func (c *Counters) AddMutation(bytesWritten uint64) {
	c.mutations.Add(1)
	c.storageBytes.Add(bytesWritten)
}

// AddQuerySession records one settled query session.
func (c *Counters) AddQuerySession() {
	c.querySessions.Add(1)
}

func (c *Counters) Snapshot() CountersSnapshot {
	return CountersSnapshot{
		TotalStorageBytes:  c.storageBytes.Load(),
		TotalMutations:     c.mutations.Load(),
		TotalQuerySessions: c.querySessions.Load(),
	}
}
