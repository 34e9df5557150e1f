package api

import (
	"context"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ListCategories fetches GET /category.
func (c *Client) ListCategories(ctx context.Context) (pagination.Page[domain.Category], error) {
	var page pagination.Page[domain.Category]
	err := c.call(ctx, http.MethodGet, "/category", "/category", nil, nil, "", &page)
	return page, err
}

// GetCategoryBySlug fetches GET /category/{slug}.
func (c *Client) GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error) {
	var cat domain.Category
	err := c.call(ctx, http.MethodGet, "/category/{slug}", "/category/"+slug, nil, nil, "", &cat)
	return cat, err
}

// CreateCategory posts a new category.
func (c *Client) CreateCategory(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	var cat domain.Category
	err := c.callJSON(ctx, http.MethodPost, "/category", "/category", in, &cat)
	return cat, err
}

// UpdateCategory replaces category id.
func (c *Client) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) (domain.Category, error) {
	var cat domain.Category
	err := c.callJSON(ctx, http.MethodPut, "/category/{id}", "/category/"+id, in, &cat)
	return cat, err
}

// DeleteCategory removes category id.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.callJSON(ctx, http.MethodDelete, "/category/{id}", "/category/"+id, nil, nil)
}

// ListProducts fetches one page of GET /product for the given filters.
func (c *Client) ListProducts(ctx context.Context, f query.Filters) (pagination.Page[domain.Product], error) {
	var page pagination.Page[domain.Product]
	err := c.call(ctx, http.MethodGet, "/product", "/product", query.Build(f), nil, "", &page)
	return page, err
}

// GetProductBySlug fetches GET /product/{slug}.
func (c *Client) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	var p domain.Product
	err := c.call(ctx, http.MethodGet, "/product/{slug}", "/product/"+slug, nil, nil, "", &p)
	return p, err
}

// CreateProduct posts a new product.
func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	var p domain.Product
	err := c.callJSON(ctx, http.MethodPost, "/product", "/product", in, &p)
	return p, err
}

// UpdateProduct replaces product id.
func (c *Client) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error) {
	var p domain.Product
	err := c.callJSON(ctx, http.MethodPut, "/product/{id}", "/product/"+id, in, &p)
	return p, err
}

// DeleteProduct removes product id.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.callJSON(ctx, http.MethodDelete, "/product/{id}", "/product/"+id, nil, nil)
}

// DeleteProductImage removes one product image.
func (c *Client) DeleteProductImage(ctx context.Context, id string) error {
	return c.callJSON(ctx, http.MethodDelete, "/product-images/{id}", "/product-images/"+id, nil, nil)
}

// Login exchanges credentials for a bearer token. It does not store it.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.LoginResponse, error) {
	var out domain.LoginResponse
	err := c.callJSON(ctx, http.MethodPost, "/auth/login", "/auth/login", creds, &out)
	return out, err
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	var u domain.User
	err := c.callJSON(ctx, http.MethodPost, "/auth/register", "/auth/register", reg, &u)
	return u, err
}

// Me fetches the profile of the token holder.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var u domain.User
	err := c.call(ctx, http.MethodGet, "/users/me", "/users/me", nil, nil, "", &u)
	return u, err
}
