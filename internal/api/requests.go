package api

import (
	"net/http"
	"strconv"
)

type RequestHandler struct {
	store Store
	errs  *errorWriter
}

func NewRequestHandler(s Store, errs *errorWriter) *RequestHandler {
	return &RequestHandler{store: s, errs: errs}
}

// List returns the caller's open contract requests, sent or received.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")

	limit := 50
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.store.ListContractRequests(r.Context(), OrganizationID(r.Context()), limit)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, records)
}
