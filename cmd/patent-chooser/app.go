// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pdiddy/patent-chooser/internal/basket"
	"github.com/pdiddy/patent-chooser/internal/metrics"
	"github.com/pdiddy/patent-chooser/internal/notify"
	"github.com/pdiddy/patent-chooser/internal/ops"
	"github.com/pdiddy/patent-chooser/internal/querycache"
	"github.com/pdiddy/patent-chooser/internal/reconcile"
	"github.com/pdiddy/patent-chooser/internal/search"
	"github.com/pdiddy/patent-chooser/internal/session"
	"github.com/pdiddy/patent-chooser/internal/signal"
	"github.com/pdiddy/patent-chooser/pkg/types"
)

// forwardedSignals are the bus events sent to Kafka when brokers are set.
var forwardedSignals = []string{
	signal.QueryRecord,
	signal.ResultsReady,
	signal.SearchFailure,
	signal.Change,
	signal.BasketActivated,
}

// app holds the components shared by every command.
type app struct {
	cfg      types.Config
	bus      *signal.Bus
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	messages *notify.Recorder
	search   *search.Orchestrator
	cache    *querycache.Cached
	store    *basket.SQLStore
	session  *session.Session
	closers  []func() error
}

// newApp wires the orchestrator, the basket store, and the session from
// cfg. Optional layers (query cache, normalizer, Kafka forwarding) are
// attached only when configured.
func newApp(cfg types.Config) (*app, error) {
	a := &app{
		cfg:      cfg,
		bus:      signal.NewBus(),
		registry: prometheus.NewRegistry(),
		messages: &notify.Recorder{},
	}
	a.metrics = metrics.New(a.registry)

	var primary search.Fetcher = ops.NewClient(cfg.Primary, cfg.HTTP, a.metrics)
	if cfg.Cache.Enabled {
		rs, err := querycache.NewRedisStore(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("query cache: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		a.cache = querycache.New(primary, rs, cfg.Cache.TTL, a.metrics)
		primary = a.cache
	}

	notifier := notify.Multi{notify.NewBusNotifier(a.bus), a.messages}
	deps := search.Deps{
		Primary:  primary,
		Engine:   reconcile.New(primary, notifier, a.metrics),
		Backends: search.BuildBackends(cfg, a.metrics),
		Bus:      a.bus,
		Notifier: notifier,
	}
	if cfg.Normalizer.Enabled {
		deps.Normalizer = ops.NewNormalizer(cfg.Normalizer, cfg.HTTP, a.metrics)
	}
	a.search = search.NewOrchestrator(cfg, deps)

	if len(cfg.Signals.Brokers) > 0 {
		fw := signal.NewKafkaForwarder(cfg.Signals)
		detach := fw.Attach(a.bus, forwardedSignals...)
		a.closers = append(a.closers, func() error {
			detach()
			return fw.Close()
		})
	}

	store, err := basket.NewSQLStore(cfg.Basket)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)
	a.session = session.New(store, a.search, a.bus, a.metrics)
	a.closers = append(a.closers, func() error {
		a.session.Deactivate()
		return nil
	})
	return a, nil
}

// activate opens the configured project.
func (a *app) activate(ctx context.Context) (*basket.Basket, error) {
	if err := a.session.ActivateProject(ctx, a.cfg.Basket.Project, session.ActivateOptions{}); err != nil {
		return nil, err
	}
	return a.session.Basket()
}

// printMessages writes the notifications collected during the command.
func (a *app) printMessages(w io.Writer) {
	for _, m := range a.messages.Messages() {
		prefix := m.Kind
		if prefix == "" {
			prefix = "info"
		}
		fmt.Fprintf(w, "[%s] %s\n", prefix, m.Text)
	}
	a.messages.Reset()
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("shutdown", "error", err)
	}
}
