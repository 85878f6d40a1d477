package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/hittygas/storefront/internal/errors"
	"github.com/hittygas/storefront/internal/models"
	"github.com/hittygas/storefront/internal/storage"
)

// Session describes the locally persisted auth state without a round trip.
type Session struct {
	Authenticated bool
	Expired       bool
	Customer      models.Customer
}

func (c *Client) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthSession, error) {

	c.primeCSRF(ctx)

	var session models.AuthSession

	if err := c.do(ctx, http.MethodPost, "/customers/login", req, &session); err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, storage.KeyAuthSession, &session); err != nil {
		c.logger.Error("Failed to persist auth session", slog.String("error", err.Error()))

		return nil, apperrors.StorageError("Signed in, but the session could not be saved").WithError(err)
	}

	return &session, nil
}

func (c *Client) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthSession, error) {

	c.primeCSRF(ctx)

	var session models.AuthSession

	if err := c.do(ctx, http.MethodPost, "/customers/register", req, &session); err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, storage.KeyAuthSession, &session); err != nil {
		c.logger.Error("Failed to persist auth session", slog.String("error", err.Error()))

		return nil, apperrors.StorageError("Registered, but the session could not be saved").WithError(err)
	}

	return &session, nil
}

// Logout invalidates the server session and always drops the local one, even
// when the server call fails; a stale local token is worse than a dangling
// server session.
func (c *Client) Logout(ctx context.Context) error {

	c.primeCSRF(ctx)

	callErr := c.do(ctx, http.MethodPost, "/customers/logout", nil, nil)

	if err := c.store.Delete(ctx, storage.KeyAuthSession); err != nil {
		c.logger.Error("Failed to clear auth session", slog.String("error", err.Error()))
	}

	if callErr != nil && !apperrors.IsCode(callErr, apperrors.ErrCodeUnauthenticated) {
		return callErr
	}

	return nil
}

// Session reports the locally known auth state. Tokens that parse as JWTs get
// an expiry check; opaque tokens are assumed live and left to the server to
// reject.
func (c *Client) Session(ctx context.Context) Session {

	var stored models.AuthSession

	found, err := c.store.Get(ctx, storage.KeyAuthSession, &stored)
	if err != nil {
		c.logger.Warn("Failed to read auth session from storage", slog.String("error", err.Error()))

		return Session{}
	}

	if !found || stored.Token == "" {
		return Session{}
	}

	session := Session{Authenticated: true, Customer: stored.Customer}

	parser := jwt.NewParser()

	token, _, err := parser.ParseUnverified(stored.Token, jwt.MapClaims{})
	if err != nil {
		return session
	}

	if exp, err := token.Claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		session.Expired = true
	}

	return session
}
