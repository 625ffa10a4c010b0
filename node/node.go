package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/stratadb/stratadb/app"
	"github.com/stratadb/stratadb/logger"
	"github.com/stratadb/stratadb/txbuffer"
	"github.com/stratadb/stratadb/types"
)

const DefaultBlockInterval = 900 * time.Millisecond

var ErrTxRejected = errors.New("transaction rejected")

type (
	Observability interface {
		Meter(name string, opts ...metric.MeterOption) metric.Meter
		Tracer(name string, options ...trace.TracerOption) trace.Tracer
		Logger() *slog.Logger
	}

	/*
		Node sequences locally submitted transactions into blocks and drives
		the application's callback cycle, standing in for an external
		consensus deployment. One proposer, no voting - the block interval
		ticker cuts a block from whatever the buffer holds. The callback
		contract it exercises is exactly the one a consensus engine would:
		begin block, deliver each transaction in order, commit.
	*/
	Node struct {
		application   *app.Application
		buffer        *txbuffer.TxBuffer
		blockInterval time.Duration

		mutex   sync.Mutex
		pending [][]byte

		log    *slog.Logger
		tracer trace.Tracer
	}
)

func New(application *app.Application, buffer *txbuffer.TxBuffer, blockInterval time.Duration, obs Observability) (*Node, error) {
	if application == nil {
		return nil, errors.New("application is nil")
	}
	if buffer == nil {
		return nil, errors.New("tx buffer is nil")
	}
	if blockInterval <= 0 {
		blockInterval = DefaultBlockInterval
	}
	return &Node{
		application:   application,
		buffer:        buffer,
		blockInterval: blockInterval,
		log:           obs.Logger(),
		tracer:        obs.Tracer("node"),
	}, nil
}

/*
SubmitTx runs the admission check on the raw transaction and buffers it for
the next block. Returns the content derived transaction id the submitter
can use to track the transaction.
*/
func (n *Node) SubmitTx(ctx context.Context, rawTx []byte) (types.TxID, error) {
	ctx, span := n.tracer.Start(ctx, "node.SubmitTx")
	defer span.End()

	if resp := n.application.CheckTx(rawTx); resp.Code != app.CodeOK {
		return nil, fmt.Errorf("%w: %s", ErrTxRejected, resp.Log)
	}
	return n.buffer.Add(ctx, rawTx)
}

// Run drives the block production cycle until the context is cancelled.
func (n *Node) Run(ctx context.Context) error {
	n.log.InfoContext(ctx, fmt.Sprintf("starting block production, interval %s", n.blockInterval))
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.collectTransactions(ctx) })
	g.Go(func() error { return n.produceBlocks(ctx) })
	return g.Wait()
}

// collectTransactions moves buffered transactions into the pending set of
// the next block, preserving arrival order.
func (n *Node) collectTransactions(ctx context.Context) error {
	for {
		rawTx, err := n.buffer.Remove(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reading tx buffer: %w", err)
		}
		n.mutex.Lock()
		n.pending = append(n.pending, rawTx)
		n.mutex.Unlock()
	}
}

func (n *Node) produceBlocks(ctx context.Context) error {
	ticker := time.NewTicker(n.blockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := n.produceBlock(ctx); err != nil {
				// an apply failure is a broken invariant, the node must not
				// continue producing blocks on top of unknown state
				return fmt.Errorf("producing block: %w", err)
			}
		}
	}
}

func (n *Node) produceBlock(ctx context.Context) error {
	ctx, span := n.tracer.Start(ctx, "node.produceBlock")
	defer span.End()

	n.mutex.Lock()
	rawTxs := n.pending
	n.pending = nil
	n.mutex.Unlock()

	height := n.application.Info().LastBlockHeight + 1
	n.application.BeginBlock(app.BlockHeader{
		Height: height,
		Time:   uint64(time.Now().UnixMilli()), /* #nosec G115 current time is positive */
	})
	for _, rawTx := range rawTxs {
		if resp := n.application.DeliverTx(rawTx); resp.Code != app.CodeOK {
			// rejected transactions contribute nothing, the block goes on
			n.log.WarnContext(ctx, fmt.Sprintf("transaction excluded from block %d: %s", height, resp.Log), logger.TxID(types.NewTxID(rawTx)))
		}
	}
	commit, err := n.application.Commit(ctx)
	if err != nil {
		return err
	}
	if len(rawTxs) > 0 {
		n.log.InfoContext(ctx, fmt.Sprintf("block %d committed with %d transactions, root %X", height, len(rawTxs), commit.AppHash), logger.Round(height))
	}
	return nil
}
