package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hittygas/storefront/internal/models"
)

func (c *Client) ListOrders(ctx context.Context, page, size int) (*models.OrderList, error) {

	query := url.Values{}

	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}

	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}

	path := "/orders"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list models.OrderList

	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	return &list, nil
}

func (c *Client) GetOrder(ctx context.Context, id string) (*models.Order, error) {

	var order models.Order

	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (c *Client) SubmitCheckout(ctx context.Context, req *models.CheckoutRequest) (*models.CheckoutResponse, error) {

	var resp models.CheckoutResponse

	if err := c.do(ctx, http.MethodPost, "/checkout", req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

// OrderStatusFunc receives each observed order state. Returning false stops
// the poll early (e.g. once a terminal status is seen).
type OrderStatusFunc func(order *models.Order, err error) bool

// PollOrderStatus re-fetches the order on the given interval until the
// callback returns false, Stop is called, or ctx is cancelled.
func (c *Client) PollOrderStatus(ctx context.Context, orderID string, interval time.Duration, fn OrderStatusFunc) (stop func()) {

	pollCtx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				order, err := c.GetOrder(pollCtx, orderID)

				if pollCtx.Err() != nil {
					return
				}

				if !fn(order, err) {
					return
				}
			}
		}
	}()

	return cancel
}
