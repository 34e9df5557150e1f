// Package storefront builds the read-only shop views on top of the catalog
// API: the home page, the category index, product detail and registration.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/slug"
	"github.com/utafrali/storefront/pkg/validator"
)

// ErrProductNotFound means the slug names no product.
var ErrProductNotFound = errors.New("product not found")

// Home page composition.
const (
	homeCategories  = 3
	homeLatest      = 4
	heroExcerptRune = 150
)

// MsgRegistrationFailed is shown when the backend gives no message.
const MsgRegistrationFailed = "Registration failed. Please try again."

// API is the backend surface the storefront reads.
type API interface {
	ListCategories(ctx context.Context) (pagination.Page[domain.Category], error)
	GetCategoryBySlug(ctx context.Context, slug string) (domain.Category, error)
	ListProducts(ctx context.Context, f query.Filters) (pagination.Page[domain.Product], error)
	GetProductBySlug(ctx context.Context, slug string) (domain.Product, error)
	Register(ctx context.Context, reg domain.Registration) (domain.User, error)
}

// Service serves storefront views.
type Service struct {
	api      API
	logger   *slog.Logger
	pageSize int
}

// New creates a Service; pageSize is the catalog grid size.
func New(client API, logger *slog.Logger, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = pagination.DefaultParams().Size
	}
	return &Service{api: client, logger: logger, pageSize: pageSize}
}

// Home is the landing page content.
type Home struct {
	Hero       *domain.Product
	Categories []domain.Category
	Latest     []domain.Product
}

// HeroExcerpt shortens the hero description for the banner.
func (h Home) HeroExcerpt() string {
	if h.Hero == nil {
		return ""
	}
	d := h.Hero.Description
	if utf8.RuneCountInString(d) <= heroExcerptRune {
		return d
	}
	return string([]rune(d)[:heroExcerptRune]) + "..."
}

// Home loads the hero product, the first categories and the latest arrivals
// concurrently.
func (s *Service) Home(ctx context.Context) (Home, error) {
	var home Home
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f := query.Filters{Size: 1, Highlighted: query.Some(true)}
		page, err := s.api.ListProducts(gctx, f)
		if err != nil {
			return fmt.Errorf("load hero product: %w", err)
		}
		if len(page.Content) > 0 {
			hero := page.Content[0]
			home.Hero = &hero
		}
		return nil
	})
	g.Go(func() error {
		page, err := s.api.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		cats := page.Content
		if len(cats) > homeCategories {
			cats = cats[:homeCategories]
		}
		home.Categories = cats
		return nil
	})
	g.Go(func() error {
		f := query.Filters{Size: homeLatest, Sort: query.SortNewest}
		page, err := s.api.ListProducts(gctx, f)
		if err != nil {
			return fmt.Errorf("load latest products: %w", err)
		}
		home.Latest = page.Content
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "home page incomplete", slog.String("error", err.Error()))
		return home, err
	}
	return home, nil
}

// Categories lists every category.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	page, err := s.api.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return page.Content, nil
}

// Product loads one product by slug. A 404 yields ErrProductNotFound.
func (s *Service) Product(ctx context.Context, rawSlug string) (domain.Product, error) {
	sl := slug.Normalize(rawSlug)
	if sl == "" {
		return domain.Product{}, fmt.Errorf("slug %q: %w", rawSlug, ErrProductNotFound)
	}
	p, err := s.api.GetProductBySlug(ctx, sl)
	if err != nil {
		if api.IsNotFound(err) {
			return domain.Product{}, fmt.Errorf("slug %q: %w", sl, ErrProductNotFound)
		}
		return domain.Product{}, fmt.Errorf("load product %q: %w", sl, err)
	}
	return p, nil
}

// DefaultFilters is the first page of the full catalog, sorted by name.
func (s *Service) DefaultFilters() query.Filters {
	return query.Filters{Size: s.pageSize, Sort: query.SortNameAsc}
}

// Products returns a list controller over the whole catalog starting at
// initial. A zero Size takes the configured page size.
func (s *Service) Products(initial query.Filters, opts ...catalog.Option) *catalog.Controller[domain.Product] {
	if initial.Size <= 0 {
		initial.Size = s.pageSize
	}
	opts = append([]catalog.Option{catalog.WithName("products"), catalog.WithLogger(s.logger)}, opts...)
	return catalog.NewController(s.api.ListProducts, initial, opts...)
}

// Category opens the product listing of one category.
func (s *Service) Category(ctx context.Context, rawSlug string, initial query.Filters, opts ...catalog.Option) (*catalog.CategoryView, error) {
	if initial.Size <= 0 {
		initial.Size = s.pageSize
	}
	if initial.Sort.IsZero() {
		initial.Sort = query.SortNameAsc
	}
	opts = append([]catalog.Option{catalog.WithLogger(s.logger)}, opts...)
	view, err := catalog.OpenCategory(ctx, s.api, rawSlug, initial, opts...)
	if view != nil {
		s.logger.DebugContext(ctx, "category view opened", slog.Any("view", view))
	}
	return view, err
}

// Register validates reg locally, then creates the account.
func (s *Service) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	if err := validator.Validate(reg); err != nil {
		return domain.User{}, err
	}
	u, err := s.api.Register(ctx, reg)
	if err != nil {
		return domain.User{}, fmt.Errorf("register: %w", err)
	}
	s.logger.InfoContext(ctx, "account registered", slog.String("email", u.Email))
	return u, nil
}

// RegistrationMessage is the form message for a failed registration: local
// validation lines, else the backend message, else a generic line.
func RegistrationMessage(err error) string {
	if err == nil {
		return ""
	}
	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		return api.ErrorMessage(err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status != 0 && appErr.Message != "" {
		return appErr.Message
	}
	return MsgRegistrationFailed
}

// PriceRangeWarning describes an inverted price range. The filters are still
// applied as given; this is advisory only.
func PriceRangeWarning(f query.Filters) string {
	if !f.PriceRangeInverted() {
		return ""
	}
	lo, _ := f.MinPrice.Get()
	hi, _ := f.MaxPrice.Get()
	return fmt.Sprintf("Minimum price %s is above maximum price %s; the search may return nothing.", lo.String(), hi.String())
}
