package tap

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/esotap/cache"
	"github.com/jonwraymond/esotap/tabular"
)

// HeaderSource supplies per-request authorization headers. An empty header
// set means an anonymous request.
type HeaderSource interface {
	Header(ctx context.Context) http.Header
}

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// Client is the TAP transport. Required.
	Client *Client

	// Store is the result cache. Nil disables caching entirely.
	Store cache.Store

	// Session supplies the bearer header. Nil means all queries run
	// anonymously.
	Session HeaderSource

	// Logger receives execution events. If nil, the standard logrus
	// logger is used.
	Logger logrus.FieldLogger

	// Meter records query metrics. If nil, a noop meter is used.
	Meter metric.Meter
}

// Executor runs queries through the cache-then-fetch pipeline: cache
// lookup, live execution on miss, store on success. Concurrent identical
// fetches against the same endpoint are collapsed into one.
type Executor struct {
	client  *Client
	store   cache.Store
	session HeaderSource
	logger  logrus.FieldLogger
	metrics *metrics
	group   singleflight.Group
}

// NewExecutor creates an executor over the given transport.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Executor{
		client:  cfg.Client,
		store:   cfg.Store,
		session: cfg.Session,
		logger:  logger,
		metrics: newMetrics(cfg.Meter),
	}, nil
}

// Query executes an ADQL query string. With useCache, a fresh cache entry
// is returned without touching the network; otherwise the query runs live
// and the result is stored on success. Zero-row results are reported as
// Result.Empty (warning level, never cached); service faults propagate as
// *QueryError.
func (e *Executor) Query(ctx context.Context, query string, useCache bool) (*Result, error) {
	start := time.Now()
	caching := useCache && e.store != nil

	if caching {
		if table, ok := e.store.Lookup(query, e.client.Endpoint()); ok {
			e.metrics.record(ctx, outcomeHit, time.Since(start))
			return &Result{Table: table, Empty: table.NumRows() == 0, FromCache: true}, nil
		}
	}

	table, err := e.fetch(ctx, query, caching)
	if err != nil {
		e.metrics.record(ctx, outcomeError, time.Since(start))
		return nil, err
	}

	if table.NumRows() == 0 {
		// Advisory, not cached: the service may simply not have the
		// data yet, and a cached empty entry would mask it appearing.
		e.logger.WithField("query", query).Warn("query returned no results")
		e.recordOutcome(ctx, caching, start)
		return &Result{Table: table, Empty: true}, nil
	}

	if caching {
		if err := e.store.Store(query, e.client.Endpoint(), table); err != nil {
			// A broken cache must not fail a successful query.
			e.logger.WithError(err).Warn("storing query result failed")
		}
	}
	e.recordOutcome(ctx, caching, start)
	return &Result{Table: table}, nil
}

func (e *Executor) recordOutcome(ctx context.Context, caching bool, start time.Time) {
	outcome := outcomeBypass
	if caching {
		outcome = outcomeMiss
	}
	e.metrics.record(ctx, outcome, time.Since(start))
}

func (e *Executor) fetch(ctx context.Context, query string, dedupe bool) (*tabular.Table, error) {
	run := func() (any, error) {
		var header http.Header
		if e.session != nil {
			header = e.session.Header(ctx)
		}
		return e.client.Execute(ctx, query, header)
	}

	if !dedupe {
		table, err := run()
		if err != nil {
			return nil, err
		}
		return table.(*tabular.Table), nil
	}

	// Collapse concurrent identical misses into a single live fetch.
	key := cache.Fingerprint(query, e.client.Endpoint())
	v, err, _ := e.group.Do(key, run)
	if err != nil {
		return nil, err
	}
	return v.(*tabular.Table), nil
}
