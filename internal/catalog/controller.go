// Package catalog drives paginated product listings: draft and active
// filters, one fetch per distinct active filter set, and category scoping.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/pkg/events"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/pagination"
)

// State gates what a listing renders.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Event types published by a Controller.
const (
	EventDraftChanged = "catalog.draft_changed"
	EventLoading      = "catalog.loading"
	EventLoaded       = "catalog.loaded"
	EventFailed       = "catalog.failed"
)

// FetchFunc loads one page for the given filters.
type FetchFunc[T any] func(ctx context.Context, f query.Filters) (pagination.Page[T], error)

// Snapshot is a consistent copy of a controller's state.
type Snapshot[T any] struct {
	State  State
	Draft  query.Filters
	Active query.Filters
	Page   pagination.Page[T]
	Err    error
	Seq    uint64
}

// NoResults reports a successful fetch that matched nothing.
func (s Snapshot[T]) NoResults() bool {
	return s.State == Loaded && s.Page.IsEmpty()
}

// HasNext reports whether Next would navigate.
func (s Snapshot[T]) HasNext() bool { return s.State == Loaded && s.Page.HasNext() }

// HasPrev reports whether Prev would navigate.
func (s Snapshot[T]) HasPrev() bool { return s.State == Loaded && s.Page.HasPrev() }

type options struct {
	name      string
	logger    *slog.Logger
	scrollTop func()
}

// Option configures a Controller.
type Option func(*options)

// WithName labels the controller in logs and event metrics.
func WithName(name string) Option { return func(o *options) { o.name = name } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithScrollToTop registers a hook run whenever page navigation succeeds.
func WithScrollToTop(fn func()) Option { return func(o *options) { o.scrollTop = fn } }

// Controller owns the draft and active filters of one listing. Every method
// is safe for concurrent use; fetches run without holding the lock and each
// carries a sequence number so only the latest issued request is applied.
type Controller[T any] struct {
	fetch FetchFunc[T]
	opts  options
	bus   *events.Bus[Snapshot[T]]

	mu     sync.Mutex
	draft  query.Filters
	active query.Filters
	issued bool
	seq    uint64
	state  State
	page   pagination.Page[T]
	err    error
}

// NewController creates an Idle controller whose draft and active filters
// both start at initial. Nothing is fetched until Load.
func NewController[T any](fetch FetchFunc[T], initial query.Filters, opts ...Option) *Controller[T] {
	o := options{name: "catalog", logger: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller[T]{
		fetch:  fetch,
		opts:   o,
		bus:    events.NewBus[Snapshot[T]](o.name),
		draft:  initial,
		active: initial,
	}
}

// Snapshot returns the current state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		State:  c.state,
		Draft:  c.draft,
		Active: c.active,
		Page:   c.page,
		Err:    c.err,
		Seq:    c.seq,
	}
}

// Subscribe streams snapshots after every change. Call cancel when done.
func (c *Controller[T]) Subscribe() (<-chan events.Event[Snapshot[T]], func()) {
	return c.bus.Subscribe()
}

// Close ends every subscription.
func (c *Controller[T]) Close() { c.bus.Close() }

// Draft returns the draft filters.
func (c *Controller[T]) Draft() query.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Active returns the active filters.
func (c *Controller[T]) Active() query.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// UpdateDraft mutates the draft filters. It never fetches.
func (c *Controller[T]) UpdateDraft(ctx context.Context, fn func(f *query.Filters)) {
	c.mu.Lock()
	fn(&c.draft)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(ctx, EventDraftChanged, snap)
}

// ResetDraft discards draft edits by copying the active filters back.
func (c *Controller[T]) ResetDraft(ctx context.Context) {
	c.UpdateDraft(ctx, func(f *query.Filters) {
		*f = c.active
	})
}

// Load performs the first fetch. Later calls are no-ops.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.issued {
		c.mu.Unlock()
		return nil
	}
	next := c.active
	c.mu.Unlock()
	return c.setActive(ctx, next, true)
}

// Refresh re-fetches the active filters, e.g. after an admin mutation.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	return c.setActive(ctx, c.Active(), true)
}

// ApplyFilters promotes the draft to active with the page reset to 0.
func (c *Controller[T]) ApplyFilters(ctx context.Context) error {
	c.mu.Lock()
	c.draft.Page = 0
	next := c.draft
	c.mu.Unlock()
	return c.setActive(ctx, next, false)
}

// SetSort applies a sort immediately, bypassing the draft, and resets the
// page to 0. The draft follows so a later ApplyFilters keeps the sort.
func (c *Controller[T]) SetSort(ctx context.Context, s query.Sort) error {
	c.mu.Lock()
	c.draft.Sort = s
	next := c.active
	next.Sort = s
	next.Page = 0
	c.mu.Unlock()
	return c.setActive(ctx, next, false)
}

// GoTo navigates to page p. Outside [0, totalPages) it does nothing;
// otherwise only the active page changes.
func (c *Controller[T]) GoTo(ctx context.Context, p int) error {
	c.mu.Lock()
	if !c.page.InRange(p) {
		c.mu.Unlock()
		return nil
	}
	next := c.active
	next.Page = p
	c.mu.Unlock()

	if c.opts.scrollTop != nil {
		c.opts.scrollTop()
	}
	return c.setActive(ctx, next, false)
}

// Next goes to the following page if there is one.
func (c *Controller[T]) Next(ctx context.Context) error {
	return c.GoTo(ctx, c.Snapshot().Page.Number+1)
}

// Prev goes to the preceding page if there is one.
func (c *Controller[T]) Prev(ctx context.Context) error {
	return c.GoTo(ctx, c.Snapshot().Page.Number-1)
}

func (c *Controller[T]) setActive(ctx context.Context, next query.Filters, force bool) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%s filters: %w", c.opts.name, err)
	}

	c.mu.Lock()
	if !force && c.issued && next.Equal(c.active) {
		c.mu.Unlock()
		return nil
	}
	c.active = next
	c.issued = true
	c.seq++
	seq := c.seq
	c.state = Loading
	c.err = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(ctx, EventLoading, snap)
	c.opts.logger.DebugContext(ctx, "fetching page",
		slog.String("list", c.opts.name),
		slog.Uint64("seq", seq),
		slog.String("query", query.Build(next).Encode()),
	)

	page, err := c.fetch(ctx, next)

	c.mu.Lock()
	if seq != c.seq {
		latest := c.seq
		c.mu.Unlock()
		c.opts.logger.DebugContext(ctx, "discarding superseded response",
			slog.String("list", c.opts.name),
			slog.Uint64("seq", seq),
			slog.Uint64("latest", latest),
		)
		return nil
	}
	eventType := EventLoaded
	if err != nil {
		c.state = Errored
		c.err = err
		c.page = pagination.Page[T]{}
		eventType = EventFailed
	} else {
		c.state = Loaded
		c.page = page
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		c.opts.logger.WarnContext(ctx, "page fetch failed",
			slog.String("list", c.opts.name),
			slog.Uint64("seq", seq),
			slog.String("error", err.Error()),
		)
	}
	c.publish(ctx, eventType, snap)
	return err
}

func (c *Controller[T]) publish(ctx context.Context, eventType string, snap Snapshot[T]) {
	c.bus.Publish(events.New(ctx, eventType, c.opts.name, snap))
}
