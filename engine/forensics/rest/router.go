package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/onflow/hotstuff-forensics/storage"
)

// NewRouter returns the router of the status API. If events is nil, the list of
// persisted conflicts is not available.
func NewRouter(log zerolog.Logger, session Session, events storage.ConflictEvents) *mux.Router {
	log = log.With().Str("component", "forensics_rest").Logger()
	h := &handler{log: log, session: session, events: events}

	router := mux.NewRouter().StrictSlash(true)
	router.Use(loggingMiddleware(log))

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.Methods(http.MethodGet).Path("/status").Name("getStatus").HandlerFunc(h.status)
	v1.Methods(http.MethodGet).Path("/rounds").Name("getRounds").HandlerFunc(h.rounds)
	v1.Methods(http.MethodGet).Path("/conflict").Name("getConflict").HandlerFunc(h.conflict)
	if events != nil {
		v1.Methods(http.MethodGet).Path("/conflicts").Name("getConflicts").HandlerFunc(h.conflicts)
	} else {
		v1.Methods(http.MethodGet).Path("/conflicts").Name("getConflicts").Handler(notImplementedHandler())
	}

	return router
}

// NewServer returns an HTTP server initialized with the status API handler.
func NewServer(log zerolog.Logger, listenAddress string, session Session, events storage.ConflictEvents) *http.Server {
	return &http.Server{
		Addr:              listenAddress,
		Handler:           NewRouter(log, session, events),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Second * 15,
		ReadTimeout:       time.Second * 15,
		IdleTimeout:       time.Second * 60,
	}
}
