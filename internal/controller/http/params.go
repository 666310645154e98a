package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/impulsa-inbox/internal/httpx/middleware"
	"github.com/vadim/impulsa-inbox/internal/httpx/response"
)

// callerID returns the authenticated user id, writing a 401 when absent
func callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		response.Unauthorized(w, "authentication required")
		return 0, false
	}
	return id, true
}

// pathID parses a positive numeric path parameter, writing a 400 when invalid
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter; absent parameters yield 0
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(w, name+" must be an integer")
		return 0, false
	}
	return v, true
}
