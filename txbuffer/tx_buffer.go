package txbuffer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stratadb/stratadb/logger"
	"github.com/stratadb/stratadb/observability"
	"github.com/stratadb/stratadb/types"
)

var (
	ErrTxIsNil      = errors.New("tx is nil")
	ErrTxInBuffer   = errors.New("tx already in tx buffer")
	ErrTxBufferFull = errors.New("tx buffer is full")
)

type (
	/*
		TxBuffer is the in-memory set of admitted but not yet sequenced raw
		transaction envelopes. Envelopes are handed out in arrival order and
		deduplicated by their content derived transaction id while buffered.
	*/
	TxBuffer struct {
		mutex          sync.Mutex
		transactions   map[string]time.Time // index of buffered transactions, tx id -> added ts
		transactionsCh chan []byte
		log            *slog.Logger
		tracer         trace.Tracer

		mDur metric.Float64Histogram
	}

	Observability interface {
		Meter(name string, opts ...metric.MeterOption) metric.Meter
		Tracer(name string, options ...trace.TracerOption) trace.Tracer
		Logger() *slog.Logger
	}
)

/*
New creates a new instance of the TxBuffer.
MaxSize specifies the total number of transactions the TxBuffer may contain.
*/
func New(maxSize uint, obs Observability) (*TxBuffer, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("buffer max size must be greater than zero, got %d", maxSize)
	}

	buf := &TxBuffer{
		transactions:   make(map[string]time.Time),
		transactionsCh: make(chan []byte, maxSize),
		log:            obs.Logger(),
		tracer:         obs.Tracer("txBuffer"),
	}
	if err := buf.initMetrics(obs); err != nil {
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}

	return buf, nil
}

/*
Add adds the given raw transaction into the buffer and returns its
transaction id. Returns an error if the transaction is empty, is already
present in the buffer, or the buffer is full.
*/
func (buf *TxBuffer) Add(ctx context.Context, rawTx []byte) (types.TxID, error) {
	ctx, span := buf.tracer.Start(ctx, "TxBuffer.Add")
	defer span.End()
	if len(rawTx) == 0 {
		return nil, ErrTxIsNil
	}

	txID := types.NewTxID(rawTx)
	buf.log.DebugContext(ctx, fmt.Sprintf("received transaction, %d bytes", len(rawTx)), logger.TxID(txID))
	span.SetAttributes(observability.TxHash(txID))

	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	if _, found := buf.transactions[string(txID)]; found {
		return nil, ErrTxInBuffer
	}

	select {
	case buf.transactionsCh <- rawTx:
		buf.transactions[string(txID)] = time.Now()
	default:
		return nil, ErrTxBufferFull
	}

	return txID, nil
}

// Remove hands out the oldest buffered transaction, blocking until one is
// available or the context is cancelled.
func (buf *TxBuffer) Remove(ctx context.Context) ([]byte, error) {
	_, span := buf.tracer.Start(ctx, "TxBuffer.Remove")
	defer span.End()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case rawTx := <-buf.transactionsCh:
		txID := types.NewTxID(rawTx)
		span.SetAttributes(observability.TxHash(txID))
		buf.removeFromIndex(ctx, string(txID))
		return rawTx, nil
	}
}

/*
removeFromIndex deletes the transaction with given id from the index.
*/
func (buf *TxBuffer) removeFromIndex(ctx context.Context, id string) {
	_, span := buf.tracer.Start(ctx, "TxBuffer.removeFromIndex")
	defer span.End()

	buf.mutex.Lock()
	defer buf.mutex.Unlock()

	if added, found := buf.transactions[id]; found {
		bufTime := time.Since(added)
		span.SetAttributes(attribute.String("buffered.duration", bufTime.String()))
		buf.mDur.Record(ctx, bufTime.Seconds())
		delete(buf.transactions, id)
	}
}

func (buf *TxBuffer) initMetrics(obs Observability) (err error) {
	m := obs.Meter("txbuffer")

	if _, err = m.Int64ObservableUpDownCounter(
		"count",
		metric.WithDescription(`Number of transactions in the buffer.`),
		metric.WithUnit("{transaction}"),
		metric.WithInt64Callback(func(ctx context.Context, io metric.Int64Observer) error {
			io.Observe(int64(len(buf.transactionsCh)))
			return nil
		}),
	); err != nil {
		return fmt.Errorf("creating tx counter: %w", err)
	}

	if buf.mDur, err = m.Float64Histogram(
		"queued",
		metric.WithDescription("For how long transaction was in the buffer before being processed."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(50e-6, 100e-6, 250e-6, 500e-6, 0.001, 0.01, 0.1, 0.2, 0.4, 0.8, 1.5, 3),
	); err != nil {
		return fmt.Errorf("creating duration histogram: %w", err)
	}

	return nil
}
