package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/utafrali/storefront/internal/api"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/query"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/events"
)

// Status lines shown by the browser.
const (
	MsgLoading        = "Loading products..."
	MsgNoResults      = "No products match the current filters."
	MsgSessionExpired = "Your session has expired. Run 'storefront login' to sign in again."
)

// noticeFadeDelay is how long a backend notice stays in the status bar.
const noticeFadeDelay = 4 * time.Second

// sortCycle is the order the sort key steps through.
var sortCycle = []query.Sort{query.SortNameAsc, query.SortPriceAsc, query.SortPriceDesc, query.SortNewest}

// listingMsg carries a catalog snapshot into the bubbletea loop.
type listingMsg struct {
	snap catalog.Snapshot[domain.Product]
}

// sessionMsg carries a session snapshot.
type sessionMsg struct {
	snap session.Snapshot
}

// noticeMsg carries a user-facing notice such as a permission refusal.
type noticeMsg struct {
	text string
}

// noticeFadeMsg clears the notice it was scheduled for.
type noticeFadeMsg struct {
	seq int
}

// actionMsg reports the end of a controller operation. Fetch failures are
// also carried by the snapshot.
type actionMsg struct {
	err error
}

// Lister is the listing the browser drives.
type Lister interface {
	Snapshot() catalog.Snapshot[domain.Product]
	Subscribe() (<-chan events.Event[catalog.Snapshot[domain.Product]], func())
	UpdateDraft(ctx context.Context, fn func(f *query.Filters))
	ResetDraft(ctx context.Context)
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	ApplyFilters(ctx context.Context) error
	SetSort(ctx context.Context, s query.Sort) error
	Next(ctx context.Context) error
	Prev(ctx context.Context) error
}

// SessionSource is the session the browser reports on.
type SessionSource interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan events.Event[session.Snapshot], func())
}

// Model is the bubbletea model of the catalog browser.
type Model struct {
	ctx   context.Context
	list  Lister
	theme Theme
	keys  KeyMap

	listingEvents <-chan events.Event[catalog.Snapshot[domain.Product]]
	sessionEvents <-chan events.Event[session.Snapshot]
	noticeEvents  <-chan events.Event[string]
	cancels       []func()

	width  int
	height int

	listing catalog.Snapshot[domain.Product]
	session session.Snapshot
	cursor  int

	searching bool
	search    string

	notice    string
	noticeSeq int
	actionErr string
}

// NewModel subscribes to the listing, the session and the notice bus.
// Call Close once the program has exited.
func NewModel(ctx context.Context, list Lister, sess SessionSource, notices *events.Bus[string]) Model {
	model := Model{
		ctx:     ctx,
		list:    list,
		theme:   DefaultTheme,
		keys:    DefaultKeyMap,
		listing: list.Snapshot(),
		session: sess.Snapshot(),
	}
	if name, ok := model.listing.Active.Name.Get(); ok {
		model.search = name
	}

	var cancel func()
	model.listingEvents, cancel = list.Subscribe()
	model.cancels = append(model.cancels, cancel)
	model.sessionEvents, cancel = sess.Subscribe()
	model.cancels = append(model.cancels, cancel)
	if notices != nil {
		model.noticeEvents, cancel = notices.Subscribe()
		model.cancels = append(model.cancels, cancel)
	}
	return model
}

// Close ends the subscriptions.
func (model Model) Close() {
	for _, cancel := range model.cancels {
		cancel()
	}
}

// Init starts the listeners and the first fetch.
func (model Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		listen(model.listingEvents, func(e events.Event[catalog.Snapshot[domain.Product]]) tea.Msg { return listingMsg{snap: e.Data} }),
		listen(model.sessionEvents, func(e events.Event[session.Snapshot]) tea.Msg { return sessionMsg{snap: e.Data} }),
		model.run(model.list.Load),
	}
	if model.noticeEvents != nil {
		cmds = append(cmds, listen(model.noticeEvents, func(e events.Event[string]) tea.Msg { return noticeMsg{text: e.Data} }))
	}
	return tea.Batch(cmds...)
}

// listen blocks until the next event on channel and converts it. A closed
// channel ends the listener.
func listen[T any](channel <-chan events.Event[T], convert func(events.Event[T]) tea.Msg) tea.Cmd {
	if channel == nil {
		return nil
	}
	return func() tea.Msg {
		event, ok := <-channel
		if !ok {
			return nil
		}
		return convert(event)
	}
}

// run executes a controller operation off the update loop.
func (model Model) run(op func(context.Context) error) tea.Cmd {
	ctx := model.ctx
	return func() tea.Msg {
		return actionMsg{err: op(ctx)}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width, model.height = message.Width, message.Height
		return model, nil

	case tea.KeyMsg:
		if model.searching {
			return model.handleSearchKeys(message)
		}
		return model.handleListKeys(message)

	case listingMsg:
		model.applyListing(message.snap)
		return model, listen(model.listingEvents, func(e events.Event[catalog.Snapshot[domain.Product]]) tea.Msg { return listingMsg{snap: e.Data} })

	case sessionMsg:
		if message.snap.Seq >= model.session.Seq {
			model.session = message.snap
		}
		return model, listen(model.sessionEvents, func(e events.Event[session.Snapshot]) tea.Msg { return sessionMsg{snap: e.Data} })

	case noticeMsg:
		model.notice = message.text
		model.noticeSeq++
		seq := model.noticeSeq
		return model, tea.Batch(
			listen(model.noticeEvents, func(e events.Event[string]) tea.Msg { return noticeMsg{text: e.Data} }),
			tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg { return noticeFadeMsg{seq: seq} }),
		)

	case noticeFadeMsg:
		if message.seq == model.noticeSeq {
			model.notice = ""
		}
		return model, nil

	case actionMsg:
		snap := model.list.Snapshot()
		model.actionErr = ""
		if message.err != nil && !errors.Is(snap.Err, message.err) {
			model.actionErr = actionMessage(message.err)
		}
		model.applyListing(snap)
		return model, nil
	}
	return model, nil
}

// applyListing keeps the newest snapshot. Snapshots can arrive both from
// the subscription and from a finished operation, in either order.
func (model *Model) applyListing(snap catalog.Snapshot[domain.Product]) {
	if snap.Seq < model.listing.Seq {
		return
	}
	settled := model.listing.State == catalog.Loaded || model.listing.State == catalog.Errored
	if snap.Seq == model.listing.Seq && snap.State == catalog.Loading && settled {
		return
	}
	if snap.Page.Number != model.listing.Page.Number || snap.Seq != model.listing.Seq {
		model.cursor = 0
	}
	model.listing = snap
	if model.cursor >= len(snap.Page.Content) {
		model.cursor = max(len(snap.Page.Content)-1, 0)
	}
}

// actionMessage words an operation failure the listing does not show, such
// as filters rejected before any request was sent.
func actionMessage(err error) string {
	if msg := api.ErrorMessage(err); msg != api.MsgUnexpected {
		return msg
	}
	return err.Error()
}

func (model Model) handleListKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.SearchActivate):
		model.searching = true
		return model, nil

	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
		}
		return model, nil

	case key.Matches(message, model.keys.Down):
		if model.cursor < len(model.listing.Page.Content)-1 {
			model.cursor++
		}
		return model, nil

	case key.Matches(message, model.keys.NextPage):
		if !model.listing.HasNext() {
			return model, nil
		}
		return model, model.run(model.list.Next)

	case key.Matches(message, model.keys.PrevPage):
		if !model.listing.HasPrev() {
			return model, nil
		}
		return model, model.run(model.list.Prev)

	case key.Matches(message, model.keys.CycleSort):
		next := nextSort(model.listing.Active.Sort)
		return model, model.run(func(ctx context.Context) error { return model.list.SetSort(ctx, next) })

	case key.Matches(message, model.keys.Refresh):
		return model, model.run(model.list.Refresh)
	}
	return model, nil
}

func (model Model) handleSearchKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit

	case key.Matches(message, model.keys.SearchCancel):
		model.searching = false
		model.list.ResetDraft(model.ctx)
		model.search, _ = model.list.Snapshot().Active.Name.Get()
		model.applyListing(model.list.Snapshot())
		return model, nil

	case key.Matches(message, model.keys.SearchApply):
		model.searching = false
		return model, model.run(model.list.ApplyFilters)

	case message.Type == tea.KeyBackspace:
		if model.search == "" {
			return model, nil
		}
		runes := []rune(model.search)
		model.search = string(runes[:len(runes)-1])

	case message.Type == tea.KeyRunes || message.Type == tea.KeySpace:
		if message.Type == tea.KeySpace {
			model.search += " "
		} else {
			model.search += string(message.Runes)
		}

	default:
		return model, nil
	}

	text := model.search
	model.list.UpdateDraft(model.ctx, func(f *query.Filters) { f.Name = query.Text(text) })
	model.applyListing(model.list.Snapshot())
	return model, nil
}

func nextSort(current query.Sort) query.Sort {
	for i, s := range sortCycle {
		if s == current {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

func sortLabel(s query.Sort) string {
	switch s {
	case query.SortNameAsc:
		return "name A-Z"
	case query.SortPriceAsc:
		return "price low to high"
	case query.SortPriceDesc:
		return "price high to low"
	case query.SortNewest:
		return "newest"
	default:
		return s.String()
	}
}

// View implements tea.Model.
func (model Model) View() string {
	var sections []string
	sections = append(sections, model.renderHeader())
	if model.session.State == session.Anonymous && model.session.Reason == session.ReasonExpired {
		sections = append(sections, lipgloss.NewStyle().Foreground(model.theme.NoticeText).Render(MsgSessionExpired))
	}
	sections = append(sections, model.renderSearchBar(), "")
	sections = append(sections, model.renderBody())
	sections = append(sections, "", model.renderStatus(), model.renderHelp())
	return strings.Join(sections, "\n")
}

func (model Model) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground).Render("Storefront")
	who := "Guest"
	switch model.session.State {
	case session.Authenticated:
		if model.session.User != nil {
			who = model.session.User.FullName()
			if model.session.IsAdmin() {
				who += " (admin)"
			}
		}
	case session.Resolving, session.Unresolved:
		who = "..."
	}
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	return title + "  " + faint.Render(who) + "  " + faint.Render("sorted by "+sortLabel(model.listing.Active.Sort))
}

func (model Model) renderSearchBar() string {
	prompt := lipgloss.NewStyle().Foreground(model.theme.HelpText).Render("search: ")
	text := model.search
	if model.searching {
		text += "█"
	} else if text == "" {
		text = lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("press / to search by name")
	}
	return prompt + text
}

func (model Model) renderBody() string {
	snap := model.listing
	switch {
	case snap.State == catalog.Idle || snap.State == catalog.Loading:
		return lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(MsgLoading)
	case snap.State == catalog.Errored:
		return lipgloss.NewStyle().Foreground(model.theme.ErrorText).Render(api.ErrorMessage(snap.Err))
	case snap.NoResults():
		return MsgNoResults
	}

	nameWidth := 4
	for _, p := range snap.Page.Content {
		nameWidth = max(nameWidth, lipgloss.Width(p.Name))
	}
	rows := make([]string, 0, len(snap.Page.Content)+2)
	for i, p := range snap.Page.Content {
		avail := lipgloss.NewStyle().Foreground(model.theme.AvailabilityColor(p.Availability)).Render(strings.ToLower(p.Availability))
		line := fmt.Sprintf("%-*s  %10s  %s", nameWidth, p.Name, p.PriceLabel(), avail)
		if p.Highlighted {
			line += " ★"
		}
		if i == model.cursor {
			line = lipgloss.NewStyle().
				Background(model.theme.SelectedBackground).
				Foreground(model.theme.SelectedForeground).
				Render(line)
		}
		rows = append(rows, line)
	}
	page := snap.Page
	rows = append(rows, "", lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(
		fmt.Sprintf("Page %d of %d (%d products)", page.Number+1, page.TotalPages, page.TotalElements)))
	if model.cursor < len(page.Content) {
		if p := page.Content[model.cursor]; p.Description != "" {
			rows = append(rows, lipgloss.NewStyle().Foreground(model.theme.NormalText).Render(p.Description))
		}
	}
	return strings.Join(rows, "\n")
}

func (model Model) renderStatus() string {
	switch {
	case model.actionErr != "":
		return lipgloss.NewStyle().Foreground(model.theme.ErrorText).Render(model.actionErr)
	case model.notice != "":
		return lipgloss.NewStyle().Foreground(model.theme.NoticeText).Render(model.notice)
	}
	return ""
}

func (model Model) renderHelp() string {
	parts := make([]string, 0, 6)
	for _, binding := range model.keys.ShortHelp() {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(strings.Join(parts, " • "))
}
