package api

import (
	"encoding/json"
	"net/http"

	"github.com/Priya8975/harmony-node/internal/signature"
)

const generatedKeyBits = 2048

type KeyPairHandler struct {
	store Store
	errs  *errorWriter
}

func NewKeyPairHandler(s Store, errs *errorWriter) *KeyPairHandler {
	return &KeyPairHandler{store: s, errs: errs}
}

type keyPairResponse struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey,omitempty"`
}

// Register stores the caller's PEM public key. Counterparts receive it with
// every contract request the caller sends.
func (h *KeyPairHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "The request body is not valid JSON.")
		return
	}
	if req.PublicKey == "" {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "The publicKey property is required.")
		return
	}
	if _, err := signature.ParsePublicKey([]byte(req.PublicKey)); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "The publicKey property is not a PEM encoded RSA public key.")
		return
	}

	if err := h.store.SetPublicKey(r.Context(), OrganizationID(r.Context()), req.PublicKey); err != nil {
		h.errs.write(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, keyPairResponse{PublicKey: req.PublicKey})
}

// Generate creates a key pair, stores its public half for the caller and
// returns both halves. The private key is not kept.
func (h *KeyPairHandler) Generate(w http.ResponseWriter, r *http.Request) {
	privatePEM, publicPEM, err := signature.GenerateKeyPair(generatedKeyBits)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	if err := h.store.SetPublicKey(r.Context(), OrganizationID(r.Context()), publicPEM); err != nil {
		h.errs.write(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, keyPairResponse{PublicKey: publicPEM, PrivateKey: privatePEM})
}

// Delete forgets the caller's public key.
func (h *KeyPairHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ClearPublicKey(r.Context(), OrganizationID(r.Context())); err != nil {
		h.errs.write(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
