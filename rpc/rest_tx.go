package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stratadb/stratadb/logger"
	"github.com/stratadb/stratadb/types"
)

type (
	// txSubmitter accepts a raw signed envelope into the candidate pool.
	txSubmitter interface {
		SubmitTx(ctx context.Context, rawTx []byte) (types.TxID, error)
	}

	submitResponse struct {
		TxID string `json:"tx_id"` // hex encoded content derived transaction id
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func TransactionEndpoints(node txSubmitter, log *slog.Logger) RegistrarFunc {
	return func(r *mux.Router) {
		r.HandleFunc("/transactions", submitTxHandler(node, log)).Methods(http.MethodPost, http.MethodOptions)
	}
}

/*
submitTxHandler accepts a CBOR encoded signed envelope in the request body,
runs it through admission and buffers it for the next block. Responds with
the transaction id the submitter can use to track the transaction.
*/
func submitTxHandler(node txSubmitter, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawTx, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("reading request body: %w", err), log)
			return
		}
		if len(rawTx) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("request body is empty"), log)
			return
		}

		txID, err := node.SubmitTx(r.Context(), rawTx)
		if err != nil {
			log.DebugContext(r.Context(), "transaction not accepted", logger.Error(err))
			writeError(w, http.StatusBadRequest, err, log)
			return
		}

		w.Header().Set(headerContentType, applicationJson)
		w.WriteHeader(http.StatusAccepted)
		if err := json.NewEncoder(w).Encode(submitResponse{TxID: fmt.Sprintf("%x", []byte(txID))}); err != nil {
			log.WarnContext(r.Context(), "failed to write submit response", logger.Error(err))
		}
	}
}

func writeError(w http.ResponseWriter, statusCode int, err error, log *slog.Logger) {
	w.Header().Set(headerContentType, applicationJson)
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: err.Error()}); err != nil {
		log.Warn("failed to write error response", logger.Error(err))
	}
}
