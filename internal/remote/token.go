// Package remote makes the node's outbound calls to counterpart systems:
// client-credentials token requests and signed, authenticated event delivery.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/Priya8975/harmony-node/internal/domain"
)

// maxLoggedBody caps how much of a counterpart's response ends up in the log.
const maxLoggedBody = 1024

// TokenClient exchanges a data source's stored credentials for a bearer
// token. Tokens are never cached.
type TokenClient struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTokenClient creates a token client on top of httpClient.
func NewTokenClient(httpClient *http.Client, logger *slog.Logger) *TokenClient {
	return &TokenClient{httpClient: httpClient, logger: logger}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// AcquireToken performs a client-credentials grant against authURL using
// HTTP Basic authentication.
func (c *TokenClient) AcquireToken(ctx context.Context, authURL, userName, password string) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(userName, password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("token request failed", "url", authURL, "error", err)
		return "", &domain.RemoteError{URL: authURL, Message: "An error occurred in authentication to an external application."}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("authentication to external application failed",
			"url", authURL,
			"status_code", resp.StatusCode,
			"body", truncate(body),
		)
		return "", &domain.RemoteError{
			URL:        authURL,
			StatusCode: resp.StatusCode,
			Message:    "An error occurred in authentication to an external application.",
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		c.logger.Error("external application returned no access token",
			"url", authURL,
			"status_code", resp.StatusCode,
			"body", truncate(body),
		)
		return "", &domain.RemoteError{
			URL:        authURL,
			StatusCode: resp.StatusCode,
			Message:    "Authentication to the external application was successful, but the access token could not be obtained.",
		}
	}

	return tr.AccessToken, nil
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody])
	}
	return string(body)
}
