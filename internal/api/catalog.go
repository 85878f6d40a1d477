package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hittygas/storefront/internal/models"
)

func (c *Client) ListProducts(ctx context.Context, req *models.ProductListRequest) (*models.ProductList, error) {

	query := url.Values{}

	if req != nil {

		if req.Page > 0 {
			query.Set("page", strconv.Itoa(req.Page))
		}

		if req.Size > 0 {
			query.Set("size", strconv.Itoa(req.Size))
		}

		if req.Category != "" {
			query.Set("category", req.Category)
		}

		if req.Search != "" {
			query.Set("search", req.Search)
		}
	}

	path := "/products"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var list models.ProductList

	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	return &list, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {

	var product models.Product

	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &product); err != nil {
		return nil, err
	}

	return &product, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {

	var categories []models.Category

	if err := c.do(ctx, http.MethodGet, "/categories", nil, &categories); err != nil {
		return nil, err
	}

	return categories, nil
}
