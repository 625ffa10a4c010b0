package rpc

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stratadb/stratadb/app"
	"github.com/stratadb/stratadb/logger"
)

// statsSource is the read only snapshot surface of the node counters.
type statsSource interface {
	Snapshot() app.CountersSnapshot
}

func StatsEndpoints(counters statsSource, log *slog.Logger) RegistrarFunc {
	return func(r *mux.Router) {
		r.HandleFunc("/stats", statsHandler(counters, log)).Methods(http.MethodGet, http.MethodOptions)
	}
}

func statsHandler(counters statsSource, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerContentType, applicationJson)
		if err := json.NewEncoder(w).Encode(counters.Snapshot()); err != nil {
			log.WarnContext(r.Context(), "failed to write stats message", logger.Error(err))
		}
	}
}
