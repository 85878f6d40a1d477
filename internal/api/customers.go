package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hittygas/storefront/internal/models"
	"github.com/hittygas/storefront/internal/storage"
)

func (c *Client) GetProfile(ctx context.Context) (*models.Customer, error) {

	var customer models.Customer

	if err := c.do(ctx, http.MethodGet, "/customers/profile", nil, &customer); err != nil {
		return nil, err
	}

	return &customer, nil
}

// UpdateProfile pushes the change and refreshes the locally persisted
// customer snapshot so the next session starts from current data.
func (c *Client) UpdateProfile(ctx context.Context, req *models.UpdateProfileRequest) (*models.Customer, error) {

	c.primeCSRF(ctx)

	var customer models.Customer

	if err := c.do(ctx, http.MethodPut, "/customers/profile", req, &customer); err != nil {
		return nil, err
	}

	var session models.AuthSession

	found, err := c.store.Get(ctx, storage.KeyAuthSession, &session)
	if err == nil && found {

		session.Customer = customer

		if err := c.store.Set(ctx, storage.KeyAuthSession, &session); err != nil {
			c.logger.Warn("Failed to refresh customer snapshot", slog.String("error", err.Error()))
		}
	}

	return &customer, nil
}

func (c *Client) GetPointsBalance(ctx context.Context) (*models.PointsBalance, error) {

	var balance models.PointsBalance

	if err := c.do(ctx, http.MethodGet, "/customers/points", nil, &balance); err != nil {
		return nil, err
	}

	return &balance, nil
}

func (c *Client) GetPointsHistory(ctx context.Context) ([]models.PointsHistoryEntry, error) {

	var history []models.PointsHistoryEntry

	if err := c.do(ctx, http.MethodGet, "/customers/points/history", nil, &history); err != nil {
		return nil, err
	}

	return history, nil
}

func (c *Client) GetReferrals(ctx context.Context) (*models.Referral, error) {

	var referral models.Referral

	if err := c.do(ctx, http.MethodGet, "/customers/referrals", nil, &referral); err != nil {
		return nil, err
	}

	return &referral, nil
}
