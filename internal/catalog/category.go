package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/slug"
)

// ErrCategoryNotFound means the slug names no category. It is a view-level
// condition, distinct from a category with no products.
var ErrCategoryNotFound = errors.New("category not found")

// CategoryLookup resolves category slugs.
type CategoryLookup interface {
	GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error)
}

// ProductLister lists products.
type ProductLister interface {
	ListProducts(ctx context.Context, f query.Filters) (pagination.Page[domain.Product], error)
}

// ResolveCategoryBySlug normalises raw and looks the category up. A 404 or
// an unusable slug yields ErrCategoryNotFound; other failures pass through.
func ResolveCategoryBySlug(ctx context.Context, lookup CategoryLookup, raw string) (domain.Category, error) {
	s := slug.Normalize(raw)
	if s == "" {
		return domain.Category{}, fmt.Errorf("slug %q: %w", raw, ErrCategoryNotFound)
	}
	cat, err := lookup.GetCategoryBySlug(ctx, s)
	if err != nil {
		if api.IsNotFound(err) {
			return domain.Category{}, fmt.Errorf("slug %q: %w", s, ErrCategoryNotFound)
		}
		return domain.Category{}, fmt.Errorf("resolve category %q: %w", s, err)
	}
	return cat, nil
}

// ViewState is the state of a category-scoped listing.
type ViewState int

const (
	ViewResolving ViewState = iota
	ViewNotFound
	ViewFailed
	ViewReady
)

func (s ViewState) String() string {
	switch s {
	case ViewResolving:
		return "resolving"
	case ViewNotFound:
		return "not_found"
	case ViewFailed:
		return "failed"
	case ViewReady:
		return "ready"
	default:
		return fmt.Sprintf("ViewState(%d)", int(s))
	}
}

// CategoryView is a product listing scoped to one category.
type CategoryView struct {
	State    ViewState
	Category domain.Category
	Err      error

	// Products is nil unless State is ViewReady.
	Products *Controller[domain.Product]
}

// CatalogAPI is what a category view needs from the backend.
type CatalogAPI interface {
	CategoryLookup
	ProductLister
}

// OpenCategory resolves rawSlug and, only once the category is known, loads
// its first page of products. When resolution fails no product request is
// made and the returned view carries ViewNotFound or ViewFailed.
func OpenCategory(ctx context.Context, client CatalogAPI, rawSlug string, base query.Filters, opts ...Option) (*CategoryView, error) {
	view := &CategoryView{State: ViewResolving}

	cat, err := ResolveCategoryBySlug(ctx, client, rawSlug)
	if err != nil {
		view.Err = err
		view.State = ViewFailed
		if errors.Is(err, ErrCategoryNotFound) {
			view.State = ViewNotFound
		}
		return view, err
	}
	view.Category = cat

	base.CategoryID = query.Some(cat.ID)
	base.Page = 0
	opts = append([]Option{WithName("category:" + cat.Slug)}, opts...)
	view.Products = NewController(client.ListProducts, base, opts...)
	view.State = ViewReady

	if err := view.Products.Load(ctx); err != nil {
		return view, err
	}
	return view, nil
}

// LogValue keeps view logging compact.
func (v *CategoryView) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("state", v.State.String()),
		slog.String("category", v.Category.Slug),
	)
}
