// Command mock-endpoints is a stand-in counterpart system for local runs. It
// issues tokens, accepts delivered events and checks their signatures.
//
// Each behaviour is mounted under its own base path so a data source can be
// pointed at any of them:
//
//	/ok    -> 200
//	/slow  -> 200 after 3s
//	/fail  -> 500
package main

import (
	"crypto/rsa"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Priya8975/harmony-node/internal/signature"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	// NODE_PUBLIC_KEY enables signature checks on delivered events.
	var nodeKey *rsa.PublicKey
	if path := os.Getenv("NODE_PUBLIC_KEY"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read node public key", "path", path, "error", err)
			os.Exit(1)
		}
		nodeKey, err = signature.ParsePublicKey(data)
		if err != nil {
			logger.Error("failed to parse node public key", "error", err)
			os.Exit(1)
		}
		logger.Info("signature verification enabled", "path", path)
	}

	cp := newCounterpart(envOr("CLIENT_ID", "harmony"), envOr("CLIENT_SECRET", "Harmony#2024"), nodeKey, logger)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Mount("/ok", cp.routes(0, http.StatusOK))
	r.Mount("/slow", cp.routes(3*time.Second, http.StatusOK))
	r.Mount("/fail", cp.routes(0, http.StatusInternalServerError))
	r.Get("/stats", cp.handleStats)

	logger.Info("mock counterpart starting", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
