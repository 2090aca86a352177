package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"github.com/dracory/weeredis/shared/constants"
	"github.com/dracory/weeredis/shared/urls"
)

// InvokeRequest is the body posted to the invoke endpoint.
type InvokeRequest struct {
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// HTTP invokes commands on a running server through its invoke endpoint.
type HTTP struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	token string
}

// NewHTTP returns an Invoker for the server at baseURL, e.g.
// "http://localhost:8080/api". A nil client uses a fresh client with a cookie jar.
func NewHTTP(baseURL string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{}
	}
	if client.Jar == nil {
		jar, _ := cookiejar.New(nil)
		c := *client
		c.Jar = jar
		client = &c
	}
	return &HTTP{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Invoke implements Invoker.
func (h *HTTP) Invoke(ctx context.Context, command string, args any) (json.RawMessage, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode %s arguments: %w", command, err)
	}
	body, err := json.Marshal(InvokeRequest{Command: command, Args: rawArgs})
	if err != nil {
		return nil, err
	}

	token, err := h.csrfToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint(constants.ActionInvoke), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.CSRFHeaderKey, token)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: invoke %s: %w", command, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: read %s reply: %w", command, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("gateway: invoke %s: %s: %s", command, resp.Status, bytes.TrimSpace(out))
	}
	return out, nil
}

// csrfToken fetches the CSRF token once; the jar keeps the matching cookie.
func (h *HTTP) csrfToken(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.token != "" {
		return h.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint(constants.ActionCSRF), nil)
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway: fetch csrf token: %w", err)
	}
	defer resp.Body.Close()

	var reply struct {
		Status string `json:"status"`
		Data   struct {
			Token string `json:"csrf_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil || reply.Data.Token == "" {
		return "", fmt.Errorf("gateway: fetch csrf token: unexpected reply (%s)", resp.Status)
	}
	h.token = reply.Data.Token
	return h.token, nil
}

func (h *HTTP) endpoint(action string) string {
	u := urls.Build("", action)
	// urls.Build yields "/?action=..."; the base already carries the path.
	return h.baseURL + strings.TrimPrefix(u, "/")
}
