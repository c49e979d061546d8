package httpserver

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"go.dedis.ch/securesum/storage"
	"go.dedis.ch/securesum/types"
	"golang.org/x/xerrors"
)

// Server exposes the results of a run over HTTP. Secrets are never part of
// a result's JSON encoding.
type Server struct {
	store  storage.KVStore
	router chi.Router
	srv    *http.Server
}

// NewServer creates a server reading results from store, where they are put
// under their participant's numeric id.
func NewServer(store storage.KVStore) *Server {
	s := &Server{
		store:  store,
		router: chi.NewRouter(),
	}
	s.RegisterRoutes(s.router)
	return s
}

// RegisterRoutes registers the HTTP routes.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/results", s.handleResults)
	r.Get("/results/{id}", s.handleResult)
}

// Handler returns the http handler serving the routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr and serves in the background. It returns the bound
// address, useful with a ":0" port.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", xerrors.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: time.Second * 5,
	}

	go func() {
		err := s.srv.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()

	log.Info().Msgf("results served on http://%s", ln.Addr())

	return ln.Addr().String(), nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"results": s.store.Len(),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	etag := `"` + hex.EncodeToString(s.store.Hash()) + `"`
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	results := []types.Result{}
	s.store.For(func(key string, value interface{}) error {
		res, ok := value.(types.Result)
		if ok {
			results = append(results, res)
		}
		return nil
	})

	sort.Slice(results, func(i, j int) bool {
		return results[i].Party < results[j].Party
	})

	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		http.Error(w, "invalid participant id", http.StatusBadRequest)
		return
	}

	value, ok := s.store.Get(strconv.Itoa(id))
	if !ok {
		http.Error(w, "no result for "+types.PartyID(id).String(), http.StatusNotFound)
		return
	}

	res, ok := value.(types.Result)
	if !ok {
		http.Error(w, "unexpected value in store", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
