// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session owns the active project and its basket. Activating a
// project tears down the previous basket and builds a new one bound to the
// project's stored entries.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pdiddy/patent-chooser/internal/basket"
	"github.com/pdiddy/patent-chooser/internal/logging"
	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/internal/search"
	"github.com/pdiddy/patent-chooser/internal/signal"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// ErrBasketInactive is returned by operations that need an active basket.
var ErrBasketInactive = errors.New("basket not active")

// Store persists basket entries and the project query history.
type Store interface {
	basket.EntryStore
	RecordQuery(ctx context.Context, project string, info types.SearchInfo) error
}

// Searcher is the part of the orchestrator a session binds to.
type Searcher interface {
	basket.DocumentSet
	basket.ListSearcher
	SetReviewer(r search.Reviewer)
}

// ActivateOptions carry the permalink state that may come with a project
// activation.
type ActivateOptions struct {
	// Datasource is the datasource requested by the caller. "review" with a
	// Numberlist fills the basket and starts a review.
	Datasource string
	Numberlist string
	Range      string
}

// Session is the active project context.
type Session struct {
	store    Store
	searcher Searcher
	bus      *signal.Bus
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu      sync.Mutex
	project string
	basket  *basket.Basket
	detach  []func()
}

// New returns a session with no active project.
func New(store Store, searcher Searcher, bus *signal.Bus, m *metrics.Metrics) *Session {
	return &Session{
		store:    store,
		searcher: searcher,
		bus:      bus,
		metrics:  m,
		logger:   logging.WithComponent("session"),
	}
}

// ActivateProject makes name the active project: the previous basket is
// torn down, the project's basket is loaded from storage, and searches are
// recorded into the project's query history from now on.
func (s *Session) ActivateProject(ctx context.Context, name string, opts ActivateOptions) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("project name is empty")
	}

	s.Deactivate()

	b := basket.New(name, basket.Deps{
		Store:     s.store,
		Documents: s.searcher,
		Lister:    s.searcher,
		Bus:       s.bus,
		Metrics:   s.metrics,
	})
	if err := b.Refresh(ctx); err != nil {
		s.logger.Error("loading basket failed", "project", name, "error", err)
		return fmt.Errorf("activating project %s: %w", name, err)
	}

	s.mu.Lock()
	s.project = name
	s.basket = b
	if s.bus != nil {
		s.detach = append(s.detach, s.bus.Subscribe(signal.QueryRecord, func(ev signal.Event) {
			s.recordQuery(name, ev)
		}))
	}
	s.mu.Unlock()

	if s.searcher != nil {
		s.searcher.SetReviewer(b)
	}
	s.logger.Info("project activated", "project", name, "entries", len(b.Entries()))
	if s.bus != nil {
		s.bus.Publish(signal.BasketActivated, name)
	}

	if opts.Datasource == types.DatasourceReview && strings.TrimSpace(opts.Numberlist) != "" {
		if err := b.InitFromQuery(ctx, opts.Numberlist); err != nil {
			return fmt.Errorf("loading numberlist into basket: %w", err)
		}
		if err := b.Review(ctx, opts.Range); err != nil {
			return fmt.Errorf("reviewing basket: %w", err)
		}
	}
	return nil
}

// Deactivate drops the active project and basket.
func (s *Session) Deactivate() {
	s.mu.Lock()
	detach := s.detach
	hadBasket := s.basket != nil
	s.detach = nil
	s.basket = nil
	s.project = ""
	s.mu.Unlock()

	for _, d := range detach {
		d()
	}
	if hadBasket && s.searcher != nil {
		s.searcher.SetReviewer(nil)
	}
}

// Project returns the active project name, or "" when none is active.
func (s *Session) Project() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project
}

// Basket returns the active basket.
func (s *Session) Basket() (*basket.Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.basket == nil {
		return nil, ErrBasketInactive
	}
	return s.basket, nil
}

// Rate rates a document in the active basket.
func (s *Session) Rate(ctx context.Context, number string, score *int, dismiss *bool) (types.BasketEntry, error) {
	b, err := s.Basket()
	if err != nil {
		return types.BasketEntry{}, err
	}
	return b.Rate(ctx, number, score, dismiss)
}

// MarkSeen records that a document was displayed.
func (s *Session) MarkSeen(ctx context.Context, number string) error {
	b, err := s.Basket()
	if err != nil {
		return err
	}
	return b.MarkSeen(ctx, number)
}

// SeenTwice reports whether a displayed document was already marked seen.
func (s *Session) SeenTwice(number string) (bool, error) {
	b, err := s.Basket()
	if err != nil {
		return false, err
	}
	return b.SeenTwice(number), nil
}

func (s *Session) recordQuery(project string, ev signal.Event) {
	info, ok := ev.Payload.(types.SearchInfo)
	if !ok {
		return
	}
	if err := s.store.RecordQuery(context.Background(), project, info); err != nil {
		s.logger.Warn("recording query failed", "project", project, "error", err)
	}
}
