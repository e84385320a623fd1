package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey-austin/signage/internal/ports"
	"github.com/mikey-austin/signage/pkg/signage"
)

// ErrSessionExpired is returned when the session cannot be refreshed.
// Stored credentials have been cleared by then.
var ErrSessionExpired = ports.ErrSessionExpired

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend error: %d %s", e.Status, e.Message)
}

// ServerMessage returns the message from the backend error body.
func (e *HTTPError) ServerMessage() string {
	return e.Message
}

// StatusCode returns the HTTP status.
func (e *HTTPError) StatusCode() int {
	return e.Status
}

// Client talks to the signage REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	creds   ports.CredentialStore
	logger  *zap.Logger
}

// New returns a client for backend. Requests go to <backend>/api.
func New(backend string, httpClient *http.Client, creds ports.CredentialStore, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(backend, "/") + "/api",
		http:    httpClient,
		creds:   creds,
		logger:  logger,
	}
}

type bodyFunc func() (io.Reader, string, error)

func jsonBody(v any) bodyFunc {
	return func() (io.Reader, string, error) {
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(payload), "application/json", nil
	}
}

type request struct {
	method   string
	endpoint string
	query    url.Values
	body     bodyFunc
}

// do sends an authenticated request. A 401 triggers exactly one token
// refresh and one replay of the request.
func (c *Client) do(ctx context.Context, req request, out any) error {
	tokens, _, err := c.creds.Get()
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, req, tokens.AccessToken)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		access, err := c.refresh(ctx, tokens.RefreshToken)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, req, access)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.logger.Warn("request unauthorized after refresh", zap.String("endpoint", req.endpoint))
			c.clear()
			return ErrSessionExpired
		}
	}
	return decode(resp, out)
}

func (c *Client) send(ctx context.Context, req request, token string) (*http.Response, error) {
	endpointURL := c.baseURL + req.endpoint
	if len(req.query) > 0 {
		endpointURL += "?" + req.query.Encode()
	}
	var (
		body        io.Reader
		contentType string
	)
	if req.body != nil {
		var err error
		body, contentType, err = req.body()
		if err != nil {
			return nil, err
		}
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpointURL, body)
	if err != nil {
		// Streamed bodies stop their writer once the reader is closed.
		if closer, ok := body.(io.Closer); ok {
			closer.Close()
		}
		return nil, err
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	c.logger.Debug("backend request", zap.String("method", req.method), zap.String("endpoint", req.endpoint))
	return c.http.Do(httpReq)
}

// refresh exchanges the refresh token for a new access token and stores it.
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		c.clear()
		return "", ErrSessionExpired
	}
	var reply signage.RefreshReply
	resp, err := c.send(ctx, request{
		method:   http.MethodPost,
		endpoint: "/refresh/token",
		body:     jsonBody(signage.RefreshBody{RefreshToken: refreshToken}),
	}, "")
	if err != nil {
		c.clear()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if err := decode(resp, &reply); err != nil {
		c.logger.Warn("token refresh failed", zap.Error(err))
		c.clear()
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	if reply.AccessToken == "" {
		c.clear()
		return "", ErrSessionExpired
	}
	if err := c.creds.SetAccessToken(reply.AccessToken); err != nil {
		c.logger.Warn("store refreshed token", zap.Error(err))
	}
	return reply.AccessToken, nil
}

func (c *Client) clear() {
	if err := c.creds.Clear(); err != nil {
		c.logger.Warn("clear credentials", zap.Error(err))
	}
}

func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return httpError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func httpError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var reply signage.ErrorReply
	if err := json.Unmarshal(data, &reply); err != nil || reply.Message == "" {
		reply.Message = strings.TrimSpace(string(data))
		if strings.HasPrefix(reply.Message, "{") {
			reply.Message = ""
		}
	}
	return &HTTPError{Status: resp.StatusCode, Message: reply.Message}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
