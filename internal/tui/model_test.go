package tui

import (
	"context"
	"net/http"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/api/apitest"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/internal/storefront"
	"github.com/utafrali/storefront/internal/tokenstore"
	"github.com/utafrali/storefront/pkg/events"
	"github.com/utafrali/storefront/pkg/logger"
)

type fixture struct {
	backend *apitest.Backend
	list    *catalog.Controller[domain.Product]
	notices *events.Bus[string]
}

// newModel builds a browser over the seeded catalog with five products per
// page, sorted by name.
func newModel(t *testing.T) (Model, *fixture) {
	t.Helper()
	b := apitest.NewSeeded()
	t.Cleanup(b.Close)

	tokens := tokenstore.NewMemoryStore("")
	client := api.New(b.HTTPClient(), tokens, logger.Discard())
	svc := storefront.New(client, logger.Discard(), 5)
	sess := session.New(client, tokens, logger.Discard())
	t.Cleanup(sess.Close)

	list := svc.Products(svc.DefaultFilters())
	t.Cleanup(list.Close)
	notices := events.NewBus[string]("notices")
	t.Cleanup(notices.Close)

	model := NewModel(context.Background(), list, sess, notices)
	t.Cleanup(model.Close)
	return model, &fixture{backend: b, list: list, notices: notices}
}

func step(t *testing.T, model Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := model.Update(msg)
	updated, ok := next.(Model)
	require.True(t, ok)
	return updated, cmd
}

// finish runs cmd synchronously and feeds its message back.
func finish(t *testing.T, model Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	model, _ = step(t, model, cmd())
	return model
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T) (Model, *fixture) {
	t.Helper()
	model, fx := newModel(t)
	model = finish(t, model, model.run(model.list.Load))
	require.Equal(t, catalog.Loaded, model.listing.State)
	return model, fx
}

func TestModel_ShowsLoadingBeforeFirstPage(t *testing.T) {
	model, _ := newModel(t)
	assert.Contains(t, model.View(), MsgLoading)
}

func TestModel_RendersFirstPage(t *testing.T) {
	model, _ := loaded(t)

	view := model.View()
	assert.Contains(t, view, "Lampada 03")
	assert.Contains(t, view, "€ 30.00")
	assert.Contains(t, view, "Sedia 01")
	assert.NotContains(t, view, "Sedia 04")
	assert.Contains(t, view, "Page 1 of 3 (12 products)")
	assert.Contains(t, view, "sorted by name A-Z")
}

func TestModel_PageNavigation(t *testing.T) {
	model, _ := loaded(t)

	model, cmd := step(t, model, tea.KeyMsg{Type: tea.KeyRight})
	model = finish(t, model, cmd)
	assert.Equal(t, 1, model.listing.Page.Number)
	assert.Contains(t, model.View(), "Sedia 04")
	assert.Contains(t, model.View(), "Page 2 of 3")

	model, cmd = step(t, model, keyRunes("l"))
	model = finish(t, model, cmd)
	assert.Equal(t, 2, model.listing.Page.Number)

	_, cmd = step(t, model, tea.KeyMsg{Type: tea.KeyRight})
	assert.Nil(t, cmd, "no page after the last")

	model, cmd = step(t, model, tea.KeyMsg{Type: tea.KeyLeft})
	model = finish(t, model, cmd)
	assert.Equal(t, 1, model.listing.Page.Number)
}

func TestModel_CursorStaysInPage(t *testing.T) {
	model, _ := loaded(t)

	model, _ = step(t, model, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, model.cursor)
	for range 10 {
		model, _ = step(t, model, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 4, model.cursor)
	assert.Contains(t, model.View(), "Pezzo numero 1", "selected product description")

	model, cmd := step(t, model, tea.KeyMsg{Type: tea.KeyRight})
	model = finish(t, model, cmd)
	assert.Equal(t, 0, model.cursor, "a new page starts at the top")
}

func TestModel_SearchEditsDraftUntilApplied(t *testing.T) {
	model, fx := loaded(t)

	model, _ = step(t, model, keyRunes("/"))
	require.True(t, model.searching)
	for _, r := range "tavolx" {
		model, _ = step(t, model, keyRunes(string(r)))
	}
	model, _ = step(t, model, tea.KeyMsg{Type: tea.KeyBackspace})
	model, _ = step(t, model, keyRunes("o"))

	name, ok := fx.list.Draft().Name.Get()
	require.True(t, ok)
	assert.Equal(t, "tavolo", name)
	assert.False(t, fx.list.Active().Name.IsSet(), "typing does not fetch")
	assert.Contains(t, model.View(), "search: tavolo")

	model, cmd := step(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, model.searching)
	model = finish(t, model, cmd)

	assert.Contains(t, model.View(), "Tavolo 02")
	assert.NotContains(t, model.View(), "Sedia 01")
	assert.Contains(t, model.View(), "Page 1 of 1 (4 products)")

	reqs := fx.backend.RequestsTo(http.MethodGet, "/product")
	assert.Equal(t, "tavolo", reqs[len(reqs)-1].Query.Get("name"))
}

func TestModel_SearchCancelRestoresActive(t *testing.T) {
	model, fx := loaded(t)

	model, _ = step(t, model, keyRunes("/"))
	model, _ = step(t, model, keyRunes("q"))
	assert.True(t, model.searching, "q is typed while searching")
	assert.Equal(t, "q", model.search)

	model, _ = step(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, model.searching)
	assert.Empty(t, model.search)
	assert.False(t, fx.list.Draft().Name.IsSet())
}

func TestModel_NoResults(t *testing.T) {
	model, _ := loaded(t)

	model, _ = step(t, model, keyRunes("/"))
	model, _ = step(t, model, keyRunes("zzz"))
	model, cmd := step(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	model = finish(t, model, cmd)

	assert.True(t, model.listing.NoResults())
	assert.Contains(t, model.View(), MsgNoResults)
}

func TestModel_CycleSort(t *testing.T) {
	model, fx := loaded(t)

	model, cmd := step(t, model, keyRunes("s"))
	model = finish(t, model, cmd)
	assert.Equal(t, query.SortPriceAsc, fx.list.Active().Sort)
	assert.Contains(t, model.View(), "sorted by price low to high")

	reqs := fx.backend.RequestsTo(http.MethodGet, "/product")
	assert.Equal(t, "price,asc", reqs[len(reqs)-1].Query.Get("sort"))

	assert.Equal(t, query.SortPriceDesc, nextSort(query.SortPriceAsc))
	assert.Equal(t, query.SortNewest, nextSort(query.SortPriceDesc))
	assert.Equal(t, query.SortNameAsc, nextSort(query.SortNewest))
	assert.Equal(t, query.SortNameAsc, nextSort(query.Sort{}))
}

func TestModel_FetchError(t *testing.T) {
	model, fx := newModel(t)
	fx.backend.Fail("GET /product", http.StatusInternalServerError, `{"message":"Catalog offline"}`, 1)

	model = finish(t, model, model.run(model.list.Load))
	assert.Equal(t, catalog.Errored, model.listing.State)
	assert.Contains(t, model.View(), "Catalog offline")
	assert.Empty(t, model.actionErr, "the listing already shows the failure")

	model, cmd := step(t, model, keyRunes("r"))
	model = finish(t, model, cmd)
	assert.Equal(t, catalog.Loaded, model.listing.State)
}

func TestModel_Quit(t *testing.T) {
	model, _ := loaded(t)

	_, cmd := step(t, model, keyRunes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	model, _ = step(t, model, keyRunes("/"))
	_, cmd = step(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_SessionExpiredBanner(t *testing.T) {
	model, _ := loaded(t)

	user := &domain.User{Name: "Ugo", Surname: "User", Email: "user@shop.test"}
	model, cmd := step(t, model, sessionMsg{snap: session.Snapshot{State: session.Authenticated, User: user}})
	assert.NotNil(t, cmd, "listener is re-armed")
	assert.Contains(t, model.View(), "Ugo User")
	assert.NotContains(t, model.View(), MsgSessionExpired)

	model, _ = step(t, model, sessionMsg{snap: session.Snapshot{State: session.Anonymous, Reason: session.ReasonExpired}})
	assert.Contains(t, model.View(), MsgSessionExpired)
	assert.Contains(t, model.View(), "Guest")

	model, _ = step(t, model, sessionMsg{snap: session.Snapshot{State: session.Anonymous, Reason: session.ReasonLoggedOut}})
	assert.NotContains(t, model.View(), MsgSessionExpired)
}

func TestModel_StaleSessionSnapshotIgnored(t *testing.T) {
	model, _ := loaded(t)

	user := &domain.User{Name: "Ugo", Surname: "User", Email: "user@shop.test"}
	model, _ = step(t, model, sessionMsg{snap: session.Snapshot{Seq: 4, State: session.Anonymous, Reason: session.ReasonLoggedOut}})
	model, cmd := step(t, model, sessionMsg{snap: session.Snapshot{Seq: 3, State: session.Authenticated, User: user}})

	assert.NotNil(t, cmd, "listener is re-armed")
	assert.Equal(t, session.Anonymous, model.session.State)
	assert.NotContains(t, model.View(), "Ugo User")
	assert.Contains(t, model.View(), "Guest")
}

func TestModel_NoticeFades(t *testing.T) {
	model, fx := loaded(t)

	fx.notices.Publish(events.New(context.Background(), "api.forbidden", "test", api.ForbiddenNotice))
	msg := listen(model.noticeEvents, func(e events.Event[string]) tea.Msg { return noticeMsg{text: e.Data} })()
	model, _ = step(t, model, msg)
	assert.Contains(t, model.View(), api.ForbiddenNotice)

	model, _ = step(t, model, noticeMsg{text: "second"})
	model, _ = step(t, model, noticeFadeMsg{seq: 1})
	assert.Contains(t, model.View(), "second", "a stale fade keeps the newer notice")

	model, _ = step(t, model, noticeFadeMsg{seq: 2})
	assert.NotContains(t, model.View(), "second")
}

func TestModel_IgnoresStaleSnapshots(t *testing.T) {
	model, fx := loaded(t)
	current := model.listing

	stale := current
	stale.Seq--
	stale.State = catalog.Loading
	model, _ = step(t, model, listingMsg{snap: stale})
	assert.Equal(t, catalog.Loaded, model.listing.State)

	late := current
	late.State = catalog.Loading
	model, _ = step(t, model, listingMsg{snap: late})
	assert.Equal(t, catalog.Loaded, model.listing.State, "a late loading event for the settled fetch is dropped")

	msg := listen(model.listingEvents, func(e events.Event[catalog.Snapshot[domain.Product]]) tea.Msg { return listingMsg{snap: e.Data} })()
	model, _ = step(t, model, msg)
	assert.Equal(t, fx.list.Snapshot().Seq, model.listing.Seq)
	assert.Equal(t, catalog.Loaded, model.listing.State)
}

func TestModel_InvalidFiltersShowActionError(t *testing.T) {
	model, fx := loaded(t)
	fx.list.UpdateDraft(context.Background(), func(f *query.Filters) { f.Size = 0 })

	model, cmd := step(t, model, keyRunes("/"))
	assert.Nil(t, cmd)
	model, cmd = step(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	model = finish(t, model, cmd)

	assert.Contains(t, model.actionErr, "size must be positive")
	assert.Equal(t, catalog.Loaded, model.listing.State)
}
