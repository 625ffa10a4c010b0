package rpc

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stratadb/stratadb/app"
	"github.com/stratadb/stratadb/logger"
)

type (
	// infoSource is the informational handshake surface of the application.
	infoSource interface {
		Info() app.ResponseInfo
	}

	infoResponse struct {
		Name            string `json:"name"`
		Version         string `json:"version"`
		AppVersion      uint64 `json:"app_version"`
		LastBlockHeight uint64 `json:"last_block_height"`
		RootHash        string `json:"root_hash"` // hex encoded state root of the last commit
	}
)

func InfoEndpoints(application infoSource, log *slog.Logger) RegistrarFunc {
	return func(r *mux.Router) {
		r.HandleFunc("/info", infoHandler(application, log)).Methods(http.MethodGet, http.MethodOptions)
	}
}

func infoHandler(application infoSource, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := application.Info()
		i := infoResponse{
			Name:            info.AppName,
			Version:         info.Version,
			AppVersion:      info.AppVersion,
			LastBlockHeight: info.LastBlockHeight,
			RootHash:        hex.EncodeToString(info.LastBlockAppHash),
		}
		w.Header().Set(headerContentType, applicationJson)
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(i); err != nil {
			log.WarnContext(r.Context(), "failed to write info message", logger.Error(err))
		}
	}
}
