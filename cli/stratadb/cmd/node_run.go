package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stratadb/stratadb/app"
	"github.com/stratadb/stratadb/keyvaluedb/boltdb"
	"github.com/stratadb/stratadb/node"
	"github.com/stratadb/stratadb/rpc"
	"github.com/stratadb/stratadb/storage"
	"github.com/stratadb/stratadb/txbuffer"
)

const (
	flagNameDBFile        = "db"
	flagNameRESTAddr      = "rest-server-address"
	flagNameMetricsAddr   = "metrics-server-address"
	flagNameBlockInterval = "block-interval"
	flagNameBufferSize    = "tx-buffer-size"
	flagNameMaxBodySize   = "rest-max-body-size"

	defaultStateDBFile = "state.db"
)

type nodeRunConfiguration struct {
	base *baseConfiguration

	DBFile        string
	RESTAddr      string
	MetricsAddr   string
	BlockInterval time.Duration
	BufferSize    uint
	MaxBodySize   int64
}

func nodeRunCmd(baseConfig *baseConfiguration) *cobra.Command {
	config := &nodeRunConfiguration{base: baseConfig}
	var cmd = &cobra.Command{
		Use:   "start",
		Short: "Starts the stratadb node",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd.Context(), config)
		},
	}
	cmd.Flags().StringVar(&config.DBFile, flagNameDBFile, "", fmt.Sprintf("path to the state database file (default $STRATA_HOME/%s)", defaultStateDBFile))
	cmd.Flags().StringVar(&config.RESTAddr, flagNameRESTAddr, "localhost:8541", "address the REST API server listens on")
	cmd.Flags().StringVar(&config.MetricsAddr, flagNameMetricsAddr, "localhost:8542", "address the metrics endpoint listens on, used when --metrics=prometheus")
	cmd.Flags().DurationVar(&config.BlockInterval, flagNameBlockInterval, node.DefaultBlockInterval, "how often a block is cut from the buffered transactions")
	cmd.Flags().UintVar(&config.BufferSize, flagNameBufferSize, 1000, "maximum number of transactions the buffer may hold")
	cmd.Flags().Int64Var(&config.MaxBodySize, flagNameMaxBodySize, 4<<20, "maximum REST request body size in bytes")
	return cmd
}

func runNode(ctx context.Context, config *nodeRunConfiguration) (err error) {
	obs := config.base.observe
	log := obs.Logger()

	dbFile := config.DBFile
	if dbFile == "" {
		if err := os.MkdirAll(config.base.HomeDir, 0700); err != nil {
			return fmt.Errorf("creating home directory: %w", err)
		}
		dbFile = filepath.Join(config.base.HomeDir, defaultStateDBFile)
	}
	db, err := boltdb.New(dbFile)
	if err != nil {
		return fmt.Errorf("opening state database %s: %w", dbFile, err)
	}
	defer func() { err = errors.Join(err, db.Close()) }()

	store, err := storage.New(db, obs)
	if err != nil {
		return fmt.Errorf("initializing authenticated store: %w", err)
	}
	counters, err := app.NewCounters(obs.Meter("app"))
	if err != nil {
		return fmt.Errorf("initializing node counters: %w", err)
	}
	application := app.New(store, counters, obs)

	buffer, err := txbuffer.New(config.BufferSize, obs)
	if err != nil {
		return fmt.Errorf("creating tx buffer: %w", err)
	}
	n, err := node.New(application, buffer, config.BlockInterval, obs)
	if err != nil {
		return fmt.Errorf("creating node: %w", err)
	}

	state := store.GetLastBlockState()
	log.InfoContext(ctx, fmt.Sprintf("starting %s %s at height %d, state db %s", app.AppName, app.Version, state.BlockHeight, dbFile))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.Run(ctx) })
	g.Go(func() error {
		server := rpc.NewRESTServer(config.RESTAddr, config.MaxBodySize, obs,
			rpc.InfoEndpoints(application, log),
			rpc.StatsEndpoints(counters, log),
			rpc.TransactionEndpoints(n, log),
		)
		return runHTTPServer(ctx, server, "REST server", log)
	})
	if handler := obs.MetricsHandler(); handler != nil {
		g.Go(func() error {
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			server := &http.Server{
				Addr:              config.MetricsAddr,
				Handler:           mux,
				ReadHeaderTimeout: time.Second,
			}
			return runHTTPServer(ctx, server, "metrics server", log)
		})
	}
	return g.Wait()
}

// runHTTPServer serves until the context is cancelled, then shuts the
// server down gracefully.
func runHTTPServer(ctx context.Context, server *http.Server, name string, log *slog.Logger) error {
	log.InfoContext(ctx, fmt.Sprintf("%s starting on %s", name, server.Addr))
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s exited: %w", name, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down %s: %w", name, err)
		}
		return nil
	}
}
