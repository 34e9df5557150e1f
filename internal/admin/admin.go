// Package admin implements the catalog administration flows. Every operation
// requires an authenticated session holding the ADMIN role.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/internal/session"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// User-facing admin messages.
const (
	MsgLoginRequired = "Please log in to continue."
	MsgAccessDenied  = "Access denied: administrators only."
	MsgCategoryInUse = "Cannot delete: category in use."
)

var (
	// ErrLoginRequired means no authenticated session is held.
	ErrLoginRequired = errors.New("login required")

	// ErrNotAdmin means the user lacks the ADMIN role. It matches
	// apperrors.ErrForbidden.
	ErrNotAdmin = &apperrors.AppError{
		Code:    "NOT_ADMIN",
		Message: MsgAccessDenied,
		Status:  http.StatusForbidden,
		Err:     apperrors.ErrForbidden,
	}

	// ErrCategoryInUse means the backend refused to delete a category that
	// still owns products.
	ErrCategoryInUse = errors.New("category in use")
)

// maxParallelUploads bounds concurrent image uploads for one product.
const maxParallelUploads = 4

// API is the backend surface used by the console.
type API interface {
	ListCategories(ctx context.Context) (pagination.Page[domain.Category], error)
	CreateCategory(ctx context.Context, in domain.CategoryInput) (domain.Category, error)
	UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) (domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	UploadCategoryCover(ctx context.Context, id string, up api.Upload) (domain.Category, error)

	ListProducts(ctx context.Context, f query.Filters) (pagination.Page[domain.Product], error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	UpdateProduct(ctx context.Context, id string, in domain.ProductInput) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UploadProductImage(ctx context.Context, id string, up api.Upload) (domain.ProductImage, error)
	DeleteProductImage(ctx context.Context, id string) error
}

// Session exposes the identity the console checks.
type Session interface {
	Snapshot() session.Snapshot
}

// Console runs admin flows and keeps the category list and the product list
// controller fresh after every mutation.
type Console struct {
	api      API
	session  Session
	logger   *slog.Logger
	products *catalog.Controller[domain.Product]

	mu         sync.Mutex
	categories []domain.Category
}

// New creates a console. pageSize sizes the admin product list.
func New(client API, sess Session, logger *slog.Logger, pageSize int, opts ...catalog.Option) *Console {
	if pageSize <= 0 {
		pageSize = 10
	}
	initial := query.Filters{Size: pageSize, Sort: query.SortNewest}
	opts = append([]catalog.Option{catalog.WithName("admin-products"), catalog.WithLogger(logger)}, opts...)
	return &Console{
		api:      client,
		session:  sess,
		logger:   logger,
		products: catalog.NewController(client.ListProducts, initial, opts...),
	}
}

// Close releases the product list subscriptions.
func (c *Console) Close() { c.products.Close() }

// Authorize checks the session: ErrLoginRequired without a resolved user,
// ErrNotAdmin without the ADMIN role.
func (c *Console) Authorize() error {
	snap := c.session.Snapshot()
	if snap.Loading || snap.State != session.Authenticated || snap.User == nil {
		return ErrLoginRequired
	}
	if !snap.User.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// Products is the admin product list, newest first.
func (c *Console) Products() *catalog.Controller[domain.Product] {
	return c.products
}

// LoadProducts authorizes and performs the first product fetch.
func (c *Console) LoadProducts(ctx context.Context) error {
	if err := c.Authorize(); err != nil {
		return err
	}
	return c.products.Load(ctx)
}

// Categories returns the categories as of the last refresh.
func (c *Console) Categories() []domain.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Category(nil), c.categories...)
}

// RefreshCategories reloads the category list.
func (c *Console) RefreshCategories(ctx context.Context) ([]domain.Category, error) {
	if err := c.Authorize(); err != nil {
		return nil, err
	}
	page, err := c.api.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	c.mu.Lock()
	c.categories = page.Content
	c.mu.Unlock()
	return page.Content, nil
}

// Message maps an admin error to the line shown to the user.
func Message(err error) string {
	var partial *PartialSaveError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLoginRequired):
		return MsgLoginRequired
	case errors.Is(err, ErrCategoryInUse):
		return MsgCategoryInUse
	case errors.As(err, &partial):
		return partial.Error()
	case errors.Is(err, ErrNotAdmin):
		return MsgAccessDenied
	default:
		return api.ErrorMessage(err)
	}
}

// isIntegrityViolation recognises the backend's foreign key failure, which
// only surfaces as text.
func isIntegrityViolation(err error) bool {
	text := api.ErrorMessage(err)
	return strings.Contains(text, "integrity") || strings.Contains(text, "ConstraintViolation")
}

func (c *Console) refreshAfterMutation(ctx context.Context, what string) {
	var err error
	switch what {
	case "category":
		_, err = c.RefreshCategories(ctx)
	case "product":
		err = c.products.Refresh(ctx)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "list refresh after mutation failed",
			slog.String("list", what),
			slog.String("error", err.Error()),
		)
	}
}
