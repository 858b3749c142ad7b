// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package graph

import (
	"encoding/json"
	"log/slog"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/parleyhq/parley/internal/auth"
)

// MaxRequestBytes caps a POST body.
const MaxRequestBytes = 1 << 20

// Request is a GraphQL request as sent over HTTP or in a websocket
// subscribe message.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Handler serves GraphQL queries and mutations over HTTP.
type Handler struct {
	schema *graphql.Schema
	logger *slog.Logger
}

// NewHandler creates a Handler for schema.
func NewHandler(schema *graphql.Schema, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{schema: schema, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if vars := q.Get("variables"); vars != "" {
			if err := json.Unmarshal([]byte(vars), &req.Variables); err != nil {
				http.Error(w, "variables must be a JSON object", http.StatusBadRequest)
				return
			}
		}
	case http.MethodPost:
		body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			http.Error(w, "request body must be a JSON GraphQL request", http.StatusBadRequest)
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	resp := h.schema.Exec(r.Context(), req.Query, req.OperationName, req.Variables)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.WarnContext(r.Context(), "write graphql response", "error", err)
	}
}

// NewRouter mounts the HTTP and websocket endpoints. Both resolve the caller
// identity through authn.
func NewRouter(schema *graphql.Schema, authn *auth.Authenticator, logger *slog.Logger, wsOpts ...WSOption) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/graphql", authn.Middleware(NewHandler(schema, logger)))
	mux.Handle("GET /graphql/ws", NewWSHandler(schema, authn, logger, wsOpts...))
	return mux
}
