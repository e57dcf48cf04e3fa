// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package basket keeps the reviewer's collection of publication numbers for
// one project, with per-entry rating and dismiss state, persisted through an
// EntryStore.
package basket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/patent-chooser/internal/logging"
	"github.com/pdiddy/patent-chooser/internal/memo"
	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/internal/reconcile"
	"github.com/pdiddy/patent-chooser/internal/search"
	"github.com/pdiddy/patent-chooser/internal/signal"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// ErrEntryNotFound is returned by an EntryStore for a missing entry.
var ErrEntryNotFound = errors.New("basket entry not found")

// ErrInvalidScore is returned when a rating is outside 1..MaxScore.
var ErrInvalidScore = errors.New("invalid score")

// refreshConcurrency bounds concurrent store writes during a refresh.
const refreshConcurrency = 8

var entrySeparator = regexp.MustCompile(`[,\n]`)

// EntryStore persists the entries of every project.
type EntryStore interface {
	Entries(ctx context.Context, project string) ([]types.BasketEntry, error)
	Fetch(ctx context.Context, project, id string) (types.BasketEntry, error)
	Save(ctx context.Context, project string, e types.BasketEntry) error
	Destroy(ctx context.Context, project, id string) error

	// Touch persists the parent project, updating its modified time.
	Touch(ctx context.Context, project string) error
}

// DocumentSet exposes the currently loaded result documents.
type DocumentSet interface {
	Documents() []types.ResultDocument
}

// ListSearcher runs a reconciliation pass over a number list.
type ListSearcher interface {
	ListSearch(ctx context.Context, req reconcile.Request) search.State
}

// EntryEvent is the payload of change:add, change:remove and change:rate.
type EntryEvent struct {
	Project string             `json:"project"`
	Number  string             `json:"number"`
	Entry   *types.BasketEntry `json:"entry,omitempty"`
}

// Deps are the collaborators of a Basket. Documents, Lister, Bus and
// Metrics are optional.
type Deps struct {
	Store     EntryStore
	Documents DocumentSet
	Lister    ListSearcher
	Bus       *signal.Bus
	Metrics   *metrics.Metrics
}

// Basket is the entry collection of one project.
type Basket struct {
	project string
	store   EntryStore
	docs    DocumentSet
	lister  ListSearcher
	bus     *signal.Bus
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	gen     memo.Generation
	numbers *memo.Cache[bool, []string]

	mu      sync.Mutex
	entries []types.BasketEntry
}

// New returns an empty basket bound to project. Call Refresh to load the
// stored entries.
func New(project string, d Deps) *Basket {
	b := &Basket{
		project: project,
		store:   d.Store,
		docs:    d.Documents,
		lister:  d.Lister,
		bus:     d.Bus,
		metrics: d.Metrics,
		logger:  logging.WithComponent("basket").With("project", project),
		now:     time.Now,
	}
	b.numbers = memo.New[bool, []string](&b.gen)
	return b
}

// Project returns the project the basket belongs to.
func (b *Basket) Project() string { return b.project }

// Add puts number into the basket and returns its entry. An empty number
// is a no-op. When the number is already present the stored copy is
// re-read first and returned. Unless bulk is set, the entry list is
// reloaded and change and change:add are published.
func (b *Basket) Add(ctx context.Context, number string, bulk bool) (types.BasketEntry, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return types.BasketEntry{}, nil
	}

	b.mu.Lock()
	if i := b.indexLocked(number); i >= 0 {
		e, err := b.resyncLocked(ctx, b.entries[i])
		b.mu.Unlock()
		if err != nil {
			return types.BasketEntry{}, err
		}
		if !bulk {
			b.publish(signal.Change, b.project)
		}
		return e, nil
	}

	e := types.BasketEntry{
		ID:        uuid.NewString(),
		Number:    number,
		Timestamp: b.now().UTC(),
		Title:     b.titleOf(number),
	}
	if err := b.store.Save(ctx, b.project, e); err != nil {
		b.mu.Unlock()
		return types.BasketEntry{}, err
	}
	b.entries = append(b.entries, e)
	b.gen.Bump()
	if err := b.store.Touch(ctx, b.project); err != nil {
		b.mu.Unlock()
		return e, err
	}
	b.metrics.ObserveBasket("add")
	if bulk {
		b.mu.Unlock()
		return e, nil
	}
	if err := b.loadLocked(ctx); err != nil {
		b.mu.Unlock()
		return e, err
	}
	if i := b.indexLocked(number); i >= 0 {
		e = b.entries[i]
	}
	b.mu.Unlock()

	b.publish(signal.Change, b.project)
	b.publish(signal.ChangeAdd, EntryEvent{Project: b.project, Number: number, Entry: &e})
	return e, nil
}

// AddMulti adds every number in bulk mode, then reloads once and publishes a
// single change.
func (b *Basket) AddMulti(ctx context.Context, numbers []string) error {
	for _, n := range numbers {
		if _, err := b.Add(ctx, n, true); err != nil {
			return err
		}
	}
	return b.Refresh(ctx)
}

// Remove deletes number from the basket. Absent numbers are a no-op.
func (b *Basket) Remove(ctx context.Context, number string) error {
	number = strings.TrimSpace(number)

	b.mu.Lock()
	i := b.indexLocked(number)
	if i < 0 {
		b.mu.Unlock()
		return nil
	}
	e := b.entries[i]
	b.entries = slices.Delete(b.entries, i, i+1)
	b.gen.Bump()

	if err := b.store.Destroy(ctx, b.project, e.ID); err != nil {
		b.mu.Unlock()
		return err
	}
	if err := b.store.Touch(ctx, b.project); err != nil {
		b.mu.Unlock()
		return err
	}
	b.metrics.ObserveBasket("remove")
	err := b.loadLocked(ctx)
	b.mu.Unlock()
	if err != nil {
		return err
	}

	b.publish(signal.ChangeRemove, EntryEvent{Project: b.project, Number: number, Entry: &e})
	b.publish(signal.Change, b.project)
	return nil
}

// Refresh reloads the entry list from the store and publishes change.
// Entries held in memory but missing from the store are written back.
func (b *Basket) Refresh(ctx context.Context) error {
	b.mu.Lock()
	err := b.loadLocked(ctx)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	b.publish(signal.Change, b.project)
	return nil
}

// Rate records score and dismiss for number, adding it first if needed.
// A nil score clears the rating. The seen flag is cleared.
func (b *Basket) Rate(ctx context.Context, number string, score *int, dismiss *bool) (types.BasketEntry, error) {
	if score != nil && (*score < 1 || *score > types.MaxScore) {
		return types.BasketEntry{}, fmt.Errorf("%w: %d", ErrInvalidScore, *score)
	}
	e, err := b.Add(ctx, number, false)
	if err != nil || e.Number == "" {
		return e, err
	}

	e.Score = score
	e.Dismiss = dismiss
	e.Seen = false
	if err := b.update(ctx, e); err != nil {
		return types.BasketEntry{}, err
	}
	b.metrics.ObserveBasket("rate")
	b.publish(signal.ChangeRate, EntryEvent{Project: b.project, Number: e.Number, Entry: &e})
	return e, nil
}

// MarkSeen adds number with the seen flag set. Numbers already in the
// basket are left alone.
func (b *Basket) MarkSeen(ctx context.Context, number string) error {
	number = strings.TrimSpace(number)
	if number == "" || b.Exists(number) {
		return nil
	}
	e, err := b.Add(ctx, number, false)
	if err != nil {
		return err
	}
	e.Seen = true
	if err := b.update(ctx, e); err != nil {
		return err
	}
	b.metrics.ObserveBasket("seen")
	return nil
}

// SeenTwice reports whether number is in the basket and already marked seen.
func (b *Basket) SeenTwice(number string) bool {
	e, ok := b.EntryByNumber(number)
	return ok && e.Seen
}

// InitFromQuery adds the comma or newline separated numbers of a permalink
// numberlist.
func (b *Basket) InitFromQuery(ctx context.Context, numberlist string) error {
	if strings.TrimSpace(numberlist) == "" {
		return nil
	}
	return b.AddMulti(ctx, entrySeparator.Split(numberlist, -1))
}

// Review runs a reconciliation pass over the basket content, excluding
// dismissed entries, under the review datasource.
func (b *Basket) Review(ctx context.Context, rng string) error {
	if b.lister == nil {
		return errors.New("basket review: no list searcher configured")
	}
	numbers := b.GetNumbers(true)
	b.lister.ListSearch(ctx, reconcile.Request{
		Numbers:    numbers,
		Hits:       len(numbers),
		Field:      "pn",
		Operator:   "OR",
		Datasource: types.DatasourceReview,
		Range:      rng,
	})
	return nil
}

// GetNumbers returns the basket numbers in order. With honorDismiss,
// dismissed entries are left out. Results are memoized until the next
// mutation.
func (b *Basket) GetNumbers(honorDismiss bool) []string {
	numbers := b.numbers.GetOrCompute(honorDismiss, func() []string {
		b.mu.Lock()
		defer b.mu.Unlock()
		out := make([]string, 0, len(b.entries))
		for _, e := range b.entries {
			if honorDismiss && e.Dismissed() {
				continue
			}
			out = append(out, e.Number)
		}
		return out
	})
	return slices.Clone(numbers)
}

// Exists reports whether number is in the basket.
func (b *Basket) Exists(number string) bool {
	_, ok := b.EntryByNumber(number)
	return ok
}

// EntryByNumber returns the entry for number.
func (b *Basket) EntryByNumber(number string) (types.BasketEntry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.indexLocked(strings.TrimSpace(number)); i >= 0 {
		return b.entries[i], true
	}
	return types.BasketEntry{}, false
}

// Entries returns a copy of the entries in order.
func (b *Basket) Entries() []types.BasketEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.entries)
}

// Empty reports whether the basket has no entries.
func (b *Basket) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries) == 0
}

// update saves a modified entry and replaces the in-memory copy.
func (b *Basket) update(ctx context.Context, e types.BasketEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.store.Save(ctx, b.project, e); err != nil {
		return err
	}
	if i := b.indexLocked(e.Number); i >= 0 {
		b.entries[i] = e
	} else {
		b.entries = append(b.entries, e)
	}
	b.gen.Bump()
	return nil
}

// resyncLocked re-reads an entry from the store. An entry that vanished
// from the store is written back from memory.
func (b *Basket) resyncLocked(ctx context.Context, e types.BasketEntry) (types.BasketEntry, error) {
	stored, err := b.store.Fetch(ctx, b.project, e.ID)
	switch {
	case err == nil:
	case errors.Is(err, ErrEntryNotFound):
		b.logger.Warn("basket entry vanished from store, saving it again", "number", e.Number)
		if err := b.store.Save(ctx, b.project, e); err != nil {
			return types.BasketEntry{}, err
		}
		stored = e
	default:
		return types.BasketEntry{}, err
	}
	if i := b.indexLocked(stored.Number); i >= 0 {
		b.entries[i] = stored
	}
	b.gen.Bump()
	return stored, nil
}

// loadLocked replaces the in-memory entries with the stored list. Entries
// known in memory but missing from the store are saved back concurrently
// and kept.
func (b *Basket) loadLocked(ctx context.Context) error {
	stored, err := b.store.Entries(ctx, b.project)
	if err != nil {
		return fmt.Errorf("loading basket entries: %w", err)
	}

	known := make(map[string]bool, len(stored))
	for _, e := range stored {
		known[e.ID] = true
	}
	var vanished []types.BasketEntry
	for _, e := range b.entries {
		if !known[e.ID] {
			vanished = append(vanished, e)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, e := range vanished {
		g.Go(func() error {
			b.logger.Warn("basket entry vanished from store, saving it again", "number", e.Number)
			if err := b.store.Save(gctx, b.project, e); err != nil {
				b.logger.Error("re-saving basket entry failed", "number", e.Number, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	b.entries = append(stored, vanished...)
	slices.SortStableFunc(b.entries, func(x, y types.BasketEntry) int {
		return x.Timestamp.Compare(y.Timestamp)
	})
	b.gen.Bump()
	return nil
}

func (b *Basket) indexLocked(number string) int {
	return slices.IndexFunc(b.entries, func(e types.BasketEntry) bool {
		return e.Number == number
	})
}

func (b *Basket) titleOf(number string) string {
	if b.docs == nil {
		return ""
	}
	for _, d := range b.docs.Documents() {
		if d.ID() == number {
			return d.Title
		}
	}
	return ""
}

func (b *Basket) publish(name string, payload any) {
	if b.bus != nil {
		b.bus.Publish(name, payload)
	}
}
