package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/Priya8975/harmony-node/internal/domain"
	"github.com/Priya8975/harmony-node/internal/signature"
)

// Invoker performs signed calls with a bearer token to counterpart endpoints.
type Invoker struct {
	httpClient *http.Client
	signer     *signature.Signer
	logger     *slog.Logger
}

// NewInvoker creates an invoker signing every request with signer.
func NewInvoker(httpClient *http.Client, signer *signature.Signer, logger *slog.Logger) *Invoker {
	return &Invoker{httpClient: httpClient, signer: signer, logger: logger}
}

// Call sends body to rawURL and returns the response body. Any status
// other than 200 is a RemoteError; there is no retry.
func (inv *Invoker) Call(ctx context.Context, method, rawURL, token, contentType string, body []byte) ([]byte, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint url: %w", err)
	}

	headers, err := inv.signer.Sign(method, target, body)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	headers.Apply(req.Header)

	start := time.Now()
	resp, err := inv.httpClient.Do(req)
	if err != nil {
		inv.logger.Error("request to external application failed", "url", rawURL, "error", err)
		return nil, &domain.RemoteError{URL: rawURL, Message: "The application returned an error."}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	elapsed := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		inv.logger.Error("external application returned an error",
			"url", rawURL,
			"status_code", resp.StatusCode,
			"body", truncate(respBody),
			"response_time_ms", elapsed,
		)
		return nil, &domain.RemoteError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Message:    "The application returned an error.",
		}
	}

	inv.logger.Debug("remote call succeeded", "url", rawURL, "response_time_ms", elapsed)
	return respBody, nil
}
