package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/Priya8975/harmony-node/internal/remote"
	"github.com/Priya8975/harmony-node/internal/signature"
	"github.com/go-chi/chi/v5"
)

func setupCounterpart(t *testing.T, nodeKey *rsa.PublicKey) (*counterpart, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cp := newCounterpart("harmony", "Harmony#2024", nodeKey, logger)

	r := chi.NewRouter()
	r.Mount("/ok", cp.routes(0, http.StatusOK))
	r.Mount("/fail", cp.routes(0, http.StatusInternalServerError))
	r.Get("/stats", cp.handleStats)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return cp, srv
}

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key
}

func deliver(t *testing.T, signer *signature.Signer, base string) error {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := &http.Client{Timeout: 5 * time.Second}
	ctx := context.Background()

	token, err := remote.NewTokenClient(client, logger).AcquireToken(ctx, base+"/auth/token", "harmony", "Harmony#2024")
	if err != nil {
		return err
	}
	body := []byte(`{"type":"org.wbcsd.pathfinder.Contract.Request.v1","id":"ev-1"}`)
	_, err = remote.NewInvoker(client, signer, logger).Call(ctx, http.MethodPost, base+"/2/events", token, domain.ContentTypeCloudEvents, body)
	return err
}

func TestCounterpart_AcceptsSignedEvent(t *testing.T) {
	key := newKey(t)
	cp, srv := setupCounterpart(t, &key.PublicKey)

	if err := deliver(t, signature.NewSigner(key), srv.URL+"/ok"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got := cp.eventsReceived.Load(); got != 1 {
		t.Errorf("expected 1 event, got %d", got)
	}
	if got := cp.signatureErrors.Load(); got != 0 {
		t.Errorf("expected no signature errors, got %d", got)
	}
}

func TestCounterpart_RejectsForeignSignature(t *testing.T) {
	cp, srv := setupCounterpart(t, &newKey(t).PublicKey)

	err := deliver(t, signature.NewSigner(newKey(t)), srv.URL+"/ok")
	if !domain.IsRemote(err) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if got := cp.signatureErrors.Load(); got != 1 {
		t.Errorf("expected 1 signature error, got %d", got)
	}
}

func TestCounterpart_FailPath(t *testing.T) {
	_, srv := setupCounterpart(t, nil)

	err := deliver(t, signature.NewSigner(newKey(t)), srv.URL+"/fail")
	var re *domain.RemoteError
	if !errors.As(err, &re) || re.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 RemoteError, got %v", err)
	}
}

func TestCounterpart_BadCredentials(t *testing.T) {
	cp, srv := setupCounterpart(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := remote.NewTokenClient(http.DefaultClient, logger).AcquireToken(context.Background(), srv.URL+"/ok/auth/token", "harmony", "wrong")
	if !domain.IsRemote(err) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if got := cp.tokensIssued.Load(); got != 0 {
		t.Errorf("expected no tokens issued, got %d", got)
	}
}

func TestCounterpart_UnknownToken(t *testing.T) {
	_, srv := setupCounterpart(t, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := remote.NewInvoker(http.DefaultClient, signature.NewSigner(newKey(t)), logger).
		Call(context.Background(), http.MethodPost, srv.URL+"/ok/2/events", "made-up", domain.ContentTypeCloudEvents, []byte(`{}`))
	var re *domain.RemoteError
	if !errors.As(err, &re) || re.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 RemoteError, got %v", err)
	}
}

func TestCounterpart_Stats(t *testing.T) {
	key := newKey(t)
	_, srv := setupCounterpart(t, nil)
	if err := deliver(t, signature.NewSigner(key), srv.URL+"/ok"); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	defer resp.Body.Close()

	var stats map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats["tokens_issued"] != 1 || stats["events_received"] != 1 {
		t.Errorf("unexpected stats: %v", stats)
	}
}
