package catalog_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/api/apitest"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/internal/tokenstore"
	"github.com/utafrali/storefront/pkg/logger"
)

func newClient(t *testing.T) (*apitest.Backend, *api.Client) {
	t.Helper()
	b := apitest.NewSeeded()
	t.Cleanup(b.Close)
	return b, api.New(b.HTTPClient(), tokenstore.NewMemoryStore(""), logger.Discard())
}

func TestResolveCategoryBySlug(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{"canonical", "tavoli", "Tavoli", nil},
		{"path and case", "/category/Lampade/", "Lampade", nil},
		{"unknown", "tappeti", "", catalog.ErrCategoryNotFound},
		{"blank", "  ", "", catalog.ErrCategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := catalog.ResolveCategoryBySlug(ctx, client, tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cat.Name)
		})
	}
}

func TestResolveCategoryBySlug_OtherFailuresPassThrough(t *testing.T) {
	b, client := newClient(t)
	b.Fail("GET /category/{slug}", http.StatusBadGateway, ``, 1)

	_, err := catalog.ResolveCategoryBySlug(context.Background(), client, "sedie")
	require.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrCategoryNotFound)
	assert.Equal(t, http.StatusBadGateway, api.StatusOf(err))
}

func TestOpenCategory_ScopesProducts(t *testing.T) {
	b, client := newClient(t)
	ctx := context.Background()

	view, err := catalog.OpenCategory(ctx, client, "sedie", query.Filters{Size: 9, Sort: query.SortNameAsc})
	require.NoError(t, err)
	defer view.Products.Close()

	assert.Equal(t, catalog.ViewReady, view.State)
	assert.Equal(t, "Sedie", view.Category.Name)

	snap := view.Products.Snapshot()
	require.Equal(t, catalog.Loaded, snap.State)
	assert.Len(t, snap.Page.Content, 4)
	for _, p := range snap.Page.Content {
		assert.Equal(t, "Sedie", p.CategoryName())
	}

	// Resolution strictly precedes the first product fetch.
	reqs := b.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/category/sedie", reqs[0].Path)
	assert.Equal(t, "/api/product", reqs[1].Path)
	assert.Equal(t, view.Category.ID, reqs[1].Query.Get("categoryId"))
}

func TestOpenCategory_UnknownSlugSkipsProductFetch(t *testing.T) {
	b, client := newClient(t)

	view, err := catalog.OpenCategory(context.Background(), client, "tappeti", query.Filters{Size: 9})
	require.ErrorIs(t, err, catalog.ErrCategoryNotFound)

	assert.Equal(t, catalog.ViewNotFound, view.State)
	assert.Nil(t, view.Products)
	assert.Empty(t, b.RequestsTo(http.MethodGet, "/product"))
}

func TestOpenCategory_EmptyCategoryIsNotNotFound(t *testing.T) {
	_, client := newClient(t)

	view, err := catalog.OpenCategory(context.Background(), client, "divani", query.Filters{Size: 9})
	require.NoError(t, err)
	defer view.Products.Close()

	assert.Equal(t, catalog.ViewReady, view.State)
	assert.True(t, view.Products.Snapshot().NoResults())
}

func TestOpenCategory_BackendDown(t *testing.T) {
	b, client := newClient(t)
	b.Fail("GET /category/{slug}", http.StatusInternalServerError, `{"error":"Internal Server Error"}`, 1)

	view, err := catalog.OpenCategory(context.Background(), client, "sedie", query.Filters{Size: 9})
	require.Error(t, err)
	assert.Equal(t, catalog.ViewFailed, view.State)
	assert.Equal(t, "failed", view.State.String())
	assert.Empty(t, b.RequestsTo(http.MethodGet, "/product"))
}
