package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/pkg/pagination"
)

// fakeSource serves pages of ints and records every fetch.
type fakeSource struct {
	mu      sync.Mutex
	total   int
	err     error
	calls   []query.Filters
	hold    map[int]chan struct{} // call index -> release
	started chan int
}

func newFakeSource(total int) *fakeSource {
	return &fakeSource{total: total, hold: make(map[int]chan struct{}), started: make(chan int, 16)}
}

func (s *fakeSource) fetch(ctx context.Context, f query.Filters) (pagination.Page[int], error) {
	s.mu.Lock()
	idx := len(s.calls)
	s.calls = append(s.calls, f)
	hold := s.hold[idx]
	err := s.err
	s.mu.Unlock()

	s.started <- idx
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return pagination.Page[int]{}, ctx.Err()
		}
	}
	if err != nil {
		return pagination.Page[int]{}, err
	}
	all := make([]int, s.total)
	for i := range all {
		all[i] = i
	}
	return pagination.Slice(all, pagination.Params{Page: f.Page, Size: f.Size}), nil
}

func (s *fakeSource) holdCall(idx int) chan struct{} {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold[idx] = ch
	s.mu.Unlock()
	return ch
}

func (s *fakeSource) Calls() []query.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]query.Filters(nil), s.calls...)
}

func newTestController(t *testing.T, src *fakeSource, opts ...Option) *Controller[int] {
	t.Helper()
	c := NewController(src.fetch, query.Filters{Size: 3, Sort: query.SortNameAsc}, opts...)
	t.Cleanup(c.Close)
	return c
}

func TestController_StartsIdleAndLoadsOnce(t *testing.T) {
	src := newFakeSource(10)
	c := newTestController(t, src)

	assert.Equal(t, Idle, c.Snapshot().State)

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.Load(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	assert.Equal(t, []int{0, 1, 2}, snap.Page.Content)
	assert.Equal(t, 4, snap.Page.TotalPages)
	assert.True(t, snap.HasNext())
	assert.False(t, snap.HasPrev())
	assert.Len(t, src.Calls(), 1)
}

func TestController_DraftNeverFetches(t *testing.T) {
	src := newFakeSource(10)
	c := newTestController(t, src)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	c.UpdateDraft(ctx, func(f *query.Filters) { f.Name = query.Some("sed") })
	c.UpdateDraft(ctx, func(f *query.Filters) { f.Name = query.Some("sedia") })

	assert.Len(t, src.Calls(), 1)
	assert.Equal(t, query.Some("sedia"), c.Draft().Name)
	assert.False(t, c.Active().Name.IsSet())
}

func TestController_ApplyFiltersResetsPage(t *testing.T) {
	src := newFakeSource(30)
	c := newTestController(t, src)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.GoTo(ctx, 4))
	require.Equal(t, 4, c.Active().Page)

	sequences := [][]func(f *query.Filters){
		{func(f *query.Filters) { f.Name = query.Some("x") }},
		{func(f *query.Filters) { f.Page = 7 }},
		{func(f *query.Filters) { f.Highlighted = query.Some(false) }, func(f *query.Filters) { f.Page = 2 }},
		{},
	}
	for _, seq := range sequences {
		for _, fn := range seq {
			c.UpdateDraft(ctx, fn)
		}
		require.NoError(t, c.ApplyFilters(ctx))
		assert.Equal(t, 0, c.Active().Page)
	}
}

func TestController_ApplyUnchangedDoesNotRefetch(t *testing.T) {
	src := newFakeSource(10)
	c := newTestController(t, src)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.ApplyFilters(ctx))
	require.NoError(t, c.ApplyFilters(ctx))
	assert.Len(t, src.Calls(), 1, "equal active filters must not fetch again")

	// A value-equal but freshly built price still counts as unchanged.
	c.UpdateDraft(ctx, func(f *query.Filters) { f.MinPrice = query.Some(decimal.RequireFromString("10")) })
	require.NoError(t, c.ApplyFilters(ctx))
	c.UpdateDraft(ctx, func(f *query.Filters) { f.MinPrice = query.Some(decimal.RequireFromString("10.00")) })
	require.NoError(t, c.ApplyFilters(ctx))
	assert.Len(t, src.Calls(), 2)
}

func TestController_GoToOutOfRangeIsNoop(t *testing.T) {
	src := newFakeSource(10)
	scrolled := 0
	c := newTestController(t, src, WithScrollToTop(func() { scrolled++ }))
	ctx := context.Background()

	// Before any page metadata every target is out of range.
	require.NoError(t, c.GoTo(ctx, 0))
	assert.Empty(t, src.Calls())

	require.NoError(t, c.Load(ctx))
	before := c.Active()

	for _, p := range []int{-1, 4, 100} {
		require.NoError(t, c.GoTo(ctx, p))
		assert.True(t, before.Equal(c.Active()), "GoTo(%d) must leave active filters unchanged", p)
	}
	assert.Len(t, src.Calls(), 1)
	assert.Zero(t, scrolled)

	require.NoError(t, c.GoTo(ctx, 3))
	assert.Equal(t, 3, c.Active().Page)
	assert.Equal(t, 1, scrolled)
	assert.Equal(t, []int{9}, c.Snapshot().Page.Content)
}

func TestController_GoToChangesOnlyPage(t *testing.T) {
	src := newFakeSource(10)
	c := newTestController(t, src)
	ctx := context.Background()
	c.UpdateDraft(ctx, func(f *query.Filters) { f.Material = query.Some("legno") })
	require.NoError(t, c.ApplyFilters(ctx))

	c.UpdateDraft(ctx, func(f *query.Filters) { f.Material = query.Some("vetro") })
	require.NoError(t, c.GoTo(ctx, 1))

	active := c.Active()
	assert.Equal(t, 1, active.Page)
	assert.Equal(t, query.Some("legno"), active.Material, "draft edits are not applied by navigation")
}

func TestController_NextPrev(t *testing.T) {
	src := newFakeSource(7)
	c := newTestController(t, src)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.Prev(ctx))
	assert.Equal(t, 0, c.Active().Page)

	require.NoError(t, c.Next(ctx))
	require.NoError(t, c.Next(ctx))
	require.NoError(t, c.Next(ctx))
	assert.Equal(t, 2, c.Active().Page)
	assert.False(t, c.Snapshot().HasNext())

	require.NoError(t, c.Prev(ctx))
	assert.Equal(t, 1, c.Active().Page)
	assert.Len(t, src.Calls(), 4)
}

func TestController_SetSortBypassesDraft(t *testing.T) {
	src := newFakeSource(10)
	c := newTestController(t, src)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.GoTo(ctx, 2))
	c.UpdateDraft(ctx, func(f *query.Filters) { f.Name = query.Some("pending") })

	require.NoError(t, c.SetSort(ctx, query.SortPriceDesc))

	active := c.Active()
	assert.Equal(t, query.SortPriceDesc, active.Sort)
	assert.Equal(t, 0, active.Page)
	assert.False(t, active.Name.IsSet(), "sorting must not apply draft fields")
	assert.Equal(t, query.SortPriceDesc, c.Draft().Sort)

	calls := src.Calls()
	assert.Equal(t, query.SortPriceDesc, calls[len(calls)-1].Sort)
}

func TestController_EmptyResultIsNotAnError(t *testing.T) {
	src := newFakeSource(0)
	c := newTestController(t, src)

	require.NoError(t, c.Load(context.Background()))
	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	assert.True(t, snap.NoResults())
	assert.NoError(t, snap.Err)
	assert.Equal(t, 0, snap.Page.TotalPages)
}

func TestController_ErrorSuppressesStaleContent(t *testing.T) {
	src := newFakeSource(10)
	c := newTestController(t, src)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	require.NotEmpty(t, c.Snapshot().Page.Content)

	boom := errors.New("boom")
	src.mu.Lock()
	src.err = boom
	src.mu.Unlock()

	err := c.Refresh(ctx)
	require.ErrorIs(t, err, boom)

	snap := c.Snapshot()
	assert.Equal(t, Errored, snap.State)
	assert.ErrorIs(t, snap.Err, boom)
	assert.Empty(t, snap.Page.Content)
	assert.False(t, snap.NoResults())
}

func TestController_RefreshAlwaysFetches(t *testing.T) {
	src := newFakeSource(10)
	c := newTestController(t, src)
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.Refresh(ctx))
	assert.Len(t, src.Calls(), 3)
}

func TestController_InvalidFiltersRejected(t *testing.T) {
	src := newFakeSource(10)
	c := NewController(src.fetch, query.Filters{Size: 0})
	defer c.Close()

	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Empty(t, src.Calls())
	assert.Equal(t, Idle, c.Snapshot().State)
}

func TestController_SupersededResponseIsDiscarded(t *testing.T) {
	src := newFakeSource(10)
	c := newTestController(t, src)
	ctx := context.Background()
	release := src.holdCall(0)

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.Load(ctx) }()
	<-src.started

	// A newer request completes while the first is still in flight.
	c.UpdateDraft(ctx, func(f *query.Filters) { f.Size = 5 })
	require.NoError(t, c.ApplyFilters(ctx))
	<-src.started
	require.Len(t, c.Snapshot().Page.Content, 5)

	close(release)
	require.NoError(t, <-firstDone)

	snap := c.Snapshot()
	assert.Equal(t, Loaded, snap.State)
	assert.Len(t, snap.Page.Content, 5, "the older response must not overwrite the newer one")
	assert.Equal(t, uint64(2), snap.Seq)
}

func TestController_SubscribeSeesTransitions(t *testing.T) {
	src := newFakeSource(4)
	c := newTestController(t, src, WithName("test-subscribe"))
	ch, cancel := c.Subscribe()
	defer cancel()

	release := src.holdCall(0)
	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()

	e := <-ch
	assert.Equal(t, EventLoading, e.Type)
	assert.Equal(t, Loading, e.Data.State)
	assert.Equal(t, "test-subscribe", e.Source)

	close(release)
	require.NoError(t, <-done)

	select {
	case e = <-ch:
		assert.Equal(t, EventLoaded, e.Type)
		assert.Equal(t, Loaded, e.Data.State)
	case <-time.After(time.Second):
		t.Fatal("no loaded event")
	}
}

func TestController_ResetDraft(t *testing.T) {
	src := newFakeSource(4)
	c := newTestController(t, src)
	ctx := context.Background()
	c.UpdateDraft(ctx, func(f *query.Filters) { f.Name = query.Some("x") })
	c.ResetDraft(ctx)
	assert.True(t, c.Draft().Equal(c.Active()))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "errored", Errored.String())
	assert.Equal(t, "State(9)", State(9).String())
}
