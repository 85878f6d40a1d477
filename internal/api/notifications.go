package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hittygas/storefront/internal/models"
)

func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {

	var notifications []models.Notification

	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &notifications); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/notifications/read-all", nil, nil)
}
