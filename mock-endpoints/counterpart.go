package main

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Priya8975/harmony-node/internal/signature"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type counterpart struct {
	clientID     string
	clientSecret string
	nodeKey      *rsa.PublicKey
	logger       *slog.Logger

	mu     sync.Mutex
	tokens map[string]struct{}

	tokensIssued    atomic.Int64
	eventsReceived  atomic.Int64
	signatureErrors atomic.Int64
}

func newCounterpart(clientID, clientSecret string, nodeKey *rsa.PublicKey, logger *slog.Logger) *counterpart {
	return &counterpart{
		clientID:     clientID,
		clientSecret: clientSecret,
		nodeKey:      nodeKey,
		logger:       logger,
		tokens:       make(map[string]struct{}),
	}
}

// routes serves the token and events endpoints, answering events with
// status after delay.
func (c *counterpart) routes(delay time.Duration, status int) http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/token", c.handleToken)
	r.Post("/2/events", func(w http.ResponseWriter, r *http.Request) {
		c.handleEvent(w, r, delay, status)
	})
	return r
}

func (c *counterpart) handleToken(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != c.clientID || pass != c.clientSecret {
		c.logger.Info("token request rejected", "client_id", user)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "BadRequest", "message": "invalid client credentials"})
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BadRequest", "message": "unsupported grant type"})
		return
	}

	token := uuid.NewString()
	c.mu.Lock()
	c.tokens[token] = struct{}{}
	c.mu.Unlock()
	c.tokensIssued.Add(1)

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (c *counterpart) handleEvent(w http.ResponseWriter, r *http.Request, delay time.Duration, status int) {
	count := c.eventsReceived.Add(1)

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	c.mu.Lock()
	_, known := c.tokens[token]
	c.mu.Unlock()
	if !known {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "BadAccessToken", "message": "unknown access token"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BadRequest", "message": "unreadable body"})
		return
	}

	if err := c.verify(r, body); err != nil {
		c.signatureErrors.Add(1)
		c.logger.Warn("signature check failed", "seq", count, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"code": "BadRequest", "message": err.Error()})
		return
	}

	var event struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	_ = json.Unmarshal(body, &event)

	if delay > 0 {
		time.Sleep(delay)
	}

	c.logger.Info("event received",
		"seq", count,
		"path", r.URL.Path,
		"event_type", event.Type,
		"event_id", event.ID,
		"status_code", status,
	)

	if status != http.StatusOK {
		writeJSON(w, status, map[string]string{"code": "InternalError", "message": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

// verify checks the content digest always, and the signature when the node
// key is known.
func (c *counterpart) verify(r *http.Request, body []byte) error {
	digest := r.Header.Get(signature.HeaderContentDigest)
	if digest != signature.ContentDigest(body) {
		return fmt.Errorf("content digest does not match body")
	}
	if r.Header.Get(signature.HeaderSignatureInput) == "" {
		return fmt.Errorf("missing signature input")
	}
	if c.nodeKey == nil {
		return nil
	}
	target := &url.URL{Host: r.Host, Path: r.URL.Path}
	return signature.Verify(c.nodeKey, r.Method, target, digest, r.Header.Get(signature.HeaderSignature))
}

func (c *counterpart) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{
		"tokens_issued":    c.tokensIssued.Load(),
		"events_received":  c.eventsReceived.Load(),
		"signature_errors": c.signatureErrors.Load(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
