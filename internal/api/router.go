package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"diceboard/internal/middleware"
	"diceboard/internal/ws"
)

// RouterConfig holds configuration for the router
type RouterConfig struct {
	Logger *slog.Logger
	Hub    *ws.Hub
	// StaticDir serves the client files at the root path when non-empty
	StaticDir string
}

// NewRouter creates the server's route table: the websocket endpoint, a
// health check, and optionally the static client
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger, middleware.DefaultPanicHandler))
	r.Use(middleware.Logging(cfg.Logger))

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", cfg.Hub.HandleWS)

	if cfg.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
