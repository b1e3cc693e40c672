package api

import (
	"encoding/json"
	"net/http"

	"github.com/Priya8975/harmony-node/internal/domain"
)

const maxEventBody = 1 << 20

type EventHandler struct {
	router EventRouter
	errs   *errorWriter
}

func NewEventHandler(router EventRouter, errs *errorWriter) *EventHandler {
	return &EventHandler{router: router, errs: errs}
}

// Create accepts one Pathfinder event from the authenticated organization.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var env domain.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&env); err != nil {
		if domain.IsValidation(err) {
			h.errs.write(w, r, err)
			return
		}
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "The request body is not valid JSON.")
		return
	}

	result, err := h.router.HandleEvent(r.Context(), OrganizationID(r.Context()), env)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
