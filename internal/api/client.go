// Package api is the storefront's client for the backend REST API. Every
// method returns a typed result plus an *errors.AppError; nothing panics and
// nothing surfaces raw transport errors to callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	apperrors "github.com/hittygas/storefront/internal/errors"
	"github.com/hittygas/storefront/internal/metrics"
	"github.com/hittygas/storefront/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const csrfCookiePath = "/sanctum/csrf-cookie"

type Client struct {
	baseURL     string
	csrfBaseURL string
	httpClient  *http.Client
	store       storage.Store
	logger      *slog.Logger
}

type Options struct {
	BaseURL     string
	CSRFBaseURL string
	HTTPClient  *http.Client
	Store       storage.Store
	Logger      *slog.Logger
}

func NewClient(opts Options) (*Client, error) {

	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}

	if opts.Store == nil {
		return nil, fmt.Errorf("api: storage is required")
	}

	csrfBase := opts.CSRFBaseURL
	if csrfBase == "" {
		csrfBase = opts.BaseURL
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if httpClient.Transport == nil {
		httpClient.Transport = metrics.RoundTripper(otelhttp.NewTransport(http.DefaultTransport))
	}

	// The backend's CSRF scheme is cookie based, so the client has to hold
	// the session and XSRF cookies across calls.
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("api: failed to create cookie jar: %w", err)
		}

		httpClient.Jar = jar
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		csrfBaseURL: strings.TrimRight(csrfBase, "/"),
		httpClient:  httpClient,
		store:       opts.Store,
		logger:      logger,
	}, nil
}

// envelope is the backend's normalized response shape.
type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// primeCSRF asks the backend to set the session + XSRF cookies before a
// mutating call. Best effort: a failed handshake is logged, not returned,
// since token-authenticated calls still work without it.
func (c *Client) primeCSRF(ctx context.Context) {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.csrfBaseURL+csrfCookiePath, nil)
	if err != nil {
		c.logger.Warn("CSRF priming request could not be built", slog.String("error", err.Error()))

		return
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("CSRF priming failed", slog.String("error", err.Error()))

		return
	}

	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
}

func (c *Client) bearerToken(ctx context.Context) string {

	var session struct {
		Token string `json:"token"`
	}

	found, err := c.store.Get(ctx, storage.KeyAuthSession, &session)
	if err != nil {
		c.logger.Warn("Failed to read auth session from storage", slog.String("error", err.Error()))

		return ""
	}

	if !found {
		return ""
	}

	return session.Token
}

func (c *Client) xsrfToken(rawURL string) string {

	u, err := url.Parse(rawURL)
	if err != nil || c.httpClient.Jar == nil {
		return ""
	}

	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == "XSRF-TOKEN" {
			if v, err := url.QueryUnescape(cookie.Value); err == nil {
				return v
			}

			return cookie.Value
		}
	}

	return ""
}

// do performs one API call and decodes the envelope's data into out (which
// may be nil when the caller only cares about success).
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {

	var reqBody io.Reader

	if body != nil {

		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.ServerError("Failed to encode request", 0).WithError(err)
		}

		reqBody = bytes.NewReader(data)
	}

	fullURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return apperrors.ServerError("Failed to build request", 0).WithError(err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if token := c.bearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if xsrf := c.xsrfToken(fullURL); xsrf != "" {
		req.Header.Set("X-XSRF-TOKEN", xsrf)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NetworkError(err)
	}

	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NetworkError(err)
	}

	var env envelope

	if err := json.Unmarshal(respData, &env); err != nil {

		if resp.StatusCode >= 400 {
			return c.statusError(resp.StatusCode, "")
		}

		return apperrors.ServerError("Unexpected response from server", resp.StatusCode).WithError(err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return c.responseError(resp.StatusCode, &env)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperrors.ServerError("Unexpected response from server", resp.StatusCode).WithError(err)
		}
	}

	return nil
}

func (c *Client) responseError(statusCode int, env *envelope) error {

	if statusCode == http.StatusUnauthorized || env.Message == "Unauthenticated." {
		return apperrors.UnauthenticatedError()
	}

	err := apperrors.ServerError(env.Message, statusCode)

	if len(env.Errors) > 0 {

		var details []string

		for field, msgs := range env.Errors {
			details = append(details, field+": "+strings.Join(msgs, "; "))
		}

		err = err.WithDetail(strings.Join(details, "\n"))
	}

	return err
}

func (c *Client) statusError(statusCode int, message string) error {

	if statusCode == http.StatusUnauthorized {
		return apperrors.UnauthenticatedError()
	}

	return apperrors.ServerError(message, statusCode)
}

// Ping checks backend reachability, for health checks.
func (c *Client) Ping(ctx context.Context) error {

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/categories", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	return nil
}
