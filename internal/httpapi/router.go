// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httpapi exposes search and paper detail over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pdiddy/paper-radar/internal/httputil"
	"github.com/pdiddy/paper-radar/internal/logging"
	"github.com/pdiddy/paper-radar/internal/resolve"
	"github.com/pdiddy/paper-radar/internal/search"
	"github.com/pdiddy/paper-radar/pkg/types"
)

// MaxLimit caps the limit query parameter.
const MaxLimit = 100

// Searcher runs searches. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (search.Response, error)
}

// Resolver resolves paper identifiers. *resolve.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, id string) (resolve.Resolution, error)
}

// Options configures the router.
type Options struct {
	// AllowedOrigins enables CORS for the listed origins. Empty disables it.
	AllowedOrigins []string
	Logger         *slog.Logger
}

type router struct {
	searcher Searcher
	resolver Resolver
	logger   *slog.Logger
}

// errBadRequest marks client input errors.
var errBadRequest = errors.New("bad request")

// NewRouter builds the HTTP handler.
func NewRouter(s Searcher, r Resolver, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	rt := &router{searcher: s, resolver: r, logger: logging.NewComponentLogger(logger, "httpapi")}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Route("/v1", func(v1 chi.Router) {
		v1.Get("/search", rt.wrap(rt.handleSearch))
		v1.Get("/papers/{id}", rt.wrap(rt.handlePaper))
	})
	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (rt *router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			rt.logger.Error("request failed",
				logging.String("path", req.URL.Path), logging.Error(err))
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, resolve.ErrEmptyID):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrAllSourcesExhausted),
		httputil.IsRateLimited(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, resolve.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GET /v1/search?q=&offset=&limit=
func (rt *router) handleSearch(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		return err
	}
	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		return err
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	resp, err := rt.searcher.Search(req.Context(), search.Request{
		Query:  strings.TrimSpace(q.Get("q")),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	if resp.Results == nil {
		resp.Results = []types.ResearchResult{}
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

type paperResponse struct {
	types.PaperDetail
	Enrichment string `json:"enrichment"`
}

// GET /v1/papers/{id}
func (rt *router) handlePaper(w http.ResponseWriter, req *http.Request) error {
	res, err := rt.resolver.Resolve(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}

	out := paperResponse{PaperDetail: res.Detail, Enrichment: "complete"}
	switch {
	case res.Job != nil:
		out.Enrichment = "scheduled"
	case !res.Detail.Paper.Metadata.Analyzed:
		out.Enrichment = "disabled"
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
