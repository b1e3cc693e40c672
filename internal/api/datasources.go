package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Priya8975/harmony-node/internal/credential"
	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/Priya8975/harmony-node/internal/engine"
)

var endpointURLPattern = regexp.MustCompile(`^https?://[-a-zA-Z0-9@:%._+~#=]{1,256}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)$`)

const passwordSymbols = "!@#$%^&*()-_+[]{}|:;,.<>/?"

type DataSourceHandler struct {
	store     Store
	decryptor *credential.Decryptor
	breaker   *engine.CircuitBreaker
	errs      *errorWriter
}

func NewDataSourceHandler(s Store, d *credential.Decryptor, cb *engine.CircuitBreaker, errs *errorWriter) *DataSourceHandler {
	return &DataSourceHandler{store: s, decryptor: d, breaker: cb, errs: errs}
}

// updateDataSourceRequest carries values encrypted with this node's public
// key (RSA-OAEP, base64). Endpoint types are plain.
type updateDataSourceRequest struct {
	UserName  string            `json:"userName"`
	Password  string            `json:"password"`
	Endpoints []domain.Endpoint `json:"endpoints"`
}

// Update registers or replaces the caller's data source.
func (h *DataSourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateDataSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "The request body is not valid JSON.")
		return
	}

	userName, err := h.decryptor.Decrypt(req.UserName)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "The userName property could not be decrypted.")
		return
	}
	password, err := h.decryptor.Decrypt(req.Password)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "The password property could not be decrypted.")
		return
	}
	endpoints := make([]domain.Endpoint, len(req.Endpoints))
	for i, ep := range req.Endpoints {
		u, err := h.decryptor.Decrypt(ep.URL)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, CodeBadRequest, "The URL of the endpoint could not be decrypted.")
			return
		}
		endpoints[i] = domain.Endpoint{Type: ep.Type, URL: u}
	}

	if err := validateDataSource(userName, password, endpoints); err != nil {
		h.errs.write(w, r, err)
		return
	}

	organizationID := OrganizationID(r.Context())
	dataSourceID, err := h.store.UpdateDataSource(r.Context(), organizationID, userName, password, endpoints)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	// new credentials or endpoints get a fresh circuit
	if h.breaker != nil {
		h.breaker.Reset(r.Context(), engine.CounterpartKey(dataSourceID))
	}

	respondJSON(w, http.StatusOK, map[string]int64{"data_source_id": dataSourceID})
}

// Get returns the caller's data source without its password.
func (h *DataSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.RestoreDataSource(r.Context(), OrganizationID(r.Context()), domain.DataSourceTypePathfinder)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if ds == nil {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "The data source is not registered.")
		return
	}

	type dataSourceResponse struct {
		*domain.DataSource
		Usable         bool                        `json:"usable"`
		CircuitBreaker *engine.CircuitBreakerState `json:"circuit_breaker,omitempty"`
	}

	resp := dataSourceResponse{DataSource: ds, Usable: ds.Usable()}
	if h.breaker != nil {
		state := h.breaker.GetState(r.Context(), engine.CounterpartKey(ds.DataSourceID))
		resp.CircuitBreaker = &state
	}
	respondJSON(w, http.StatusOK, resp)
}

// Delete removes the caller's data source.
func (h *DataSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	organizationID := OrganizationID(r.Context())

	ds, err := h.store.RestoreDataSource(r.Context(), organizationID, domain.DataSourceTypePathfinder)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if ds == nil {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "The data source is not registered.")
		return
	}

	if _, err := h.store.DeleteDataSource(r.Context(), organizationID); err != nil {
		h.errs.write(w, r, err)
		return
	}
	if h.breaker != nil {
		h.breaker.Reset(r.Context(), engine.CounterpartKey(ds.DataSourceID))
	}

	respondJSON(w, http.StatusOK, map[string]int64{"data_source_id": ds.DataSourceID})
}

func validateDataSource(userName, password string, endpoints []domain.Endpoint) error {
	if userName == "" {
		return domain.Validationf("Invalid user name.")
	}
	if !validPassword(password) {
		return domain.Validationf("Passwords must be at least 8 and no more than 32 characters long and contain all uppercase and lowercase letters, numbers, and symbols.")
	}

	var hasAuth, hasUpdate bool
	for _, ep := range endpoints {
		if !endpointURLPattern.MatchString(ep.URL) {
			return domain.Validationf("The URL format of the endpoint is invalid.")
		}
		switch ep.Type {
		case domain.EndpointAuthenticate:
			hasAuth = true
		case domain.EndpointUpdateEvent:
			hasUpdate = true
		}
	}
	if !hasAuth {
		return domain.Validationf("Endpoint does not contain Action Authenticate.")
	}
	if !hasUpdate {
		return domain.Validationf("Endpoint does not contain Action Events.")
	}
	return nil
}

// validPassword requires 8 to 32 characters from letters, digits and
// passwordSymbols, with at least one of each class.
func validPassword(p string) bool {
	if n := utf8.RuneCountInString(p); n < 8 || n > 32 {
		return false
	}
	var lower, upper, digit, symbol bool
	for _, c := range p {
		switch {
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, c):
			symbol = true
		default:
			return false
		}
	}
	return lower && upper && digit && symbol
}
