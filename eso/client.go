package eso

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/esotap/adql"
	"github.com/jonwraymond/esotap/auth"
	"github.com/jonwraymond/esotap/cache"
	"github.com/jonwraymond/esotap/tabular"
	"github.com/jonwraymond/esotap/tap"
)

// Default service endpoints and limits.
const (
	DefaultTAPEndpoint    = "https://archive.eso.org/tap_obs"
	DevTAPEndpoint        = "http://dfidev5.hq.eso.org:8123/tap_obs"
	DefaultSSOEndpoint    = "https://www.eso.org/sso/oidc/token"
	DefaultCalSelectorURL = "https://archive.eso.org/calselector/v1/associations"
	DefaultDownloadURL    = "https://dataportal.eso.org/dataPortal/file/"
	DefaultRowLimit       = 50
)

// queryTarget pairs a queryable table with its primary membership column
// and the columns surfaced first in results.
type queryTarget struct {
	table  string
	column string
	lead   []string
}

var (
	queryOnInstrument = queryTarget{table: "dbo.raw", column: "instrument", lead: tabular.LeadColumnsRaw}
	queryOnCollection = queryTarget{table: "ivoa.ObsCore", column: "obs_collection", lead: tabular.LeadColumnsPhase3}
)

// Config configures a Client. Every collaborator endpoint is resolved here
// at construction time; nothing is ambient or compile-time selected. The
// dev TAP endpoint ships only as the DevTAPEndpoint constant for callers
// who explicitly opt in.
type Config struct {
	// TAPEndpoint is the TAP service base URL. Default: DefaultTAPEndpoint.
	TAPEndpoint string

	// SSOEndpoint is the OIDC token endpoint. Default: DefaultSSOEndpoint.
	SSOEndpoint string

	// CalSelectorURL is the calibration-association service URL.
	// Default: DefaultCalSelectorURL.
	CalSelectorURL string

	// DownloadURL is the data-product base URL. Default: DefaultDownloadURL.
	DownloadURL string

	// CacheDir holds the on-disk query cache. Default: the user cache
	// directory (XDG) under "esotap".
	CacheDir string

	// CachePolicy controls result caching. Nil means DefaultPolicy;
	// an explicit &cache.Policy{} keeps entries forever.
	CachePolicy *cache.Policy

	// RowLimit caps result rows when a query sets no explicit top.
	// Zero means DefaultRowLimit; negative means no cap.
	RowLimit int

	// Timeout bounds each HTTP request. Default: 120 seconds.
	Timeout time.Duration

	// HTTPClient overrides the transport. Takes precedence over Timeout.
	HTTPClient *http.Client

	// Logger receives client events. If nil, the standard logrus logger
	// is used.
	Logger logrus.FieldLogger

	// Meter records query and auth metrics. If nil, a noop meter is used.
	Meter metric.Meter
}

func (c Config) withDefaults() Config {
	if c.TAPEndpoint == "" {
		c.TAPEndpoint = DefaultTAPEndpoint
	}
	if c.SSOEndpoint == "" {
		c.SSOEndpoint = DefaultSSOEndpoint
	}
	if c.CalSelectorURL == "" {
		c.CalSelectorURL = DefaultCalSelectorURL
	}
	if c.DownloadURL == "" {
		c.DownloadURL = DefaultDownloadURL
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(xdg.CacheHome, "esotap")
	}
	if c.CachePolicy == nil {
		policy := cache.DefaultPolicy()
		c.CachePolicy = &policy
	}
	if c.RowLimit == 0 {
		c.RowLimit = DefaultRowLimit
	}
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Client is an ESO science-archive client. One instance owns one auth
// session and one cache directory; it is safe for concurrent use.
type Client struct {
	cfg      Config
	logger   logrus.FieldLogger
	session  *auth.Session
	executor *tap.Executor

	mu          sync.Mutex
	instruments []string
	collections []string
}

// New builds a client from cfg, creating the cache directory if needed.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()

	store, err := cache.NewFileStore(cfg.CacheDir, *cfg.CachePolicy, cfg.Logger)
	if err != nil {
		return nil, err
	}
	session := auth.NewSession(auth.Config{
		TokenURL:   cfg.SSOEndpoint,
		HTTPClient: cfg.HTTPClient,
		Logger:     cfg.Logger,
		Meter:      cfg.Meter,
	})
	tapClient, err := tap.NewClient(cfg.TAPEndpoint, cfg.HTTPClient, cfg.Logger)
	if err != nil {
		return nil, err
	}
	executor, err := tap.NewExecutor(tap.ExecutorConfig{
		Client:  tapClient,
		Store:   store,
		Session: session,
		Logger:  cfg.Logger,
		Meter:   cfg.Meter,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:      cfg,
		logger:   cfg.Logger,
		session:  session,
		executor: executor,
	}, nil
}

// Login authenticates against the archive's SSO endpoint. Failure is a
// boolean, not an error; the reason is logged.
func (c *Client) Login(ctx context.Context, username, password string) bool {
	return c.session.Login(ctx, username, password)
}

// Logout discards the current auth session.
func (c *Client) Logout() {
	c.session.Logout()
}

// Authenticated reports whether a login session exists.
func (c *Client) Authenticated() bool {
	return c.session.Authenticated()
}

// QueryTAP executes a raw ADQL query string through the cache pipeline.
func (c *Client) QueryTAP(ctx context.Context, query string, useCache bool) (*tap.Result, error) {
	return c.executor.Query(ctx, query, useCache)
}

// QueryOptions refine an instrument, collection or main query.
type QueryOptions struct {
	// Columns selects the returned columns; empty means all.
	Columns []string

	// Filters constrains columns, each value through the operator-aware
	// sanitizer.
	Filters map[string]adql.Value

	// ConeRA, ConeDec and ConeRadius (degrees) select a cone search.
	// All three or none; a partial set is a construction error.
	ConeRA, ConeDec, ConeRadius *float64

	// StartTime and EndTime bound date_obs, "YYYY-MM-DD hh:mm:ss".
	StartTime, EndTime string

	// OrderBy names a result ordering column; OrderDesc flips it.
	OrderBy   string
	OrderDesc bool

	// Top overrides the client's row limit for this query.
	Top *int

	// CountOnly replaces the column list with count(*).
	CountOnly bool

	// NoCache forces a live fetch and skips storing the result.
	NoCache bool
}

func (c *Client) buildQuery(target queryTarget, primary []string, opts QueryOptions) (string, error) {
	if err := adql.ValidateTimeRange(opts.StartTime, opts.EndTime); err != nil {
		return "", err
	}
	cone, err := adql.NewCone(opts.ConeRA, opts.ConeDec, opts.ConeRadius)
	if err != nil {
		return "", err
	}

	filters := make(map[string]adql.Value, len(opts.Filters)+1)
	for k, v := range opts.Filters {
		filters[k] = v
	}
	if dateFilter, ok := dateObsFilter(opts.StartTime, opts.EndTime); ok {
		if _, clash := filters["date_obs"]; clash {
			return "", ErrDateFilterClash
		}
		filters["date_obs"] = dateFilter
	}

	spec := adql.QuerySpec{
		Table:     target.table,
		Columns:   opts.Columns,
		Filters:   filters,
		Cone:      cone,
		CountOnly: opts.CountOnly,
	}
	if len(primary) > 0 {
		spec.Primary = adql.PrimaryFilter{Column: target.column, Values: primary}
	}
	if opts.OrderBy != "" {
		spec.OrderBy = &adql.OrderBy{Column: opts.OrderBy, Descending: opts.OrderDesc}
	}
	switch {
	case opts.Top != nil:
		spec.Top = opts.Top
	case c.cfg.RowLimit >= 0:
		limit := c.cfg.RowLimit
		spec.Top = &limit
	}

	return adql.Build(spec)
}

// dateObsFilter folds optional observation-date bounds into one
// operator-qualified filter value.
func dateObsFilter(start, end string) (adql.Value, bool) {
	switch {
	case start != "" && end != "":
		v, _ := adql.Expr("between", fmt.Sprintf("'%s' and '%s'", start, end))
		return v, true
	case start != "":
		v, _ := adql.Expr(">=", "'"+start+"'")
		return v, true
	case end != "":
		v, _ := adql.Expr("<=", "'"+end+"'")
		return v, true
	}
	return adql.Value{}, false
}

func (c *Client) query(ctx context.Context, target queryTarget, primary []string, opts QueryOptions) (*tap.Result, error) {
	query, err := c.buildQuery(target, primary, opts)
	if err != nil {
		return nil, err
	}
	res, err := c.executor.Query(ctx, query, !opts.NoCache)
	if err != nil {
		return nil, err
	}
	if res.Table != nil {
		res.Table = tabular.Reorder(res.Table, target.lead)
	}
	return res, nil
}

// QueryInstrument queries raw data of the named instruments.
func (c *Client) QueryInstrument(ctx context.Context, instruments []string, opts QueryOptions) (*tap.Result, error) {
	return c.query(ctx, queryOnInstrument, instruments, opts)
}

// QueryCollections queries processed (phase 3) data of the named
// collections.
func (c *Client) QueryCollections(ctx context.Context, collections []string, opts QueryOptions) (*tap.Result, error) {
	return c.query(ctx, queryOnCollection, collections, opts)
}

// QueryMain queries the whole raw-data table without a membership clause.
func (c *Client) QueryMain(ctx context.Context, opts QueryOptions) (*tap.Result, error) {
	return c.query(ctx, queryOnInstrument, nil, opts)
}

// ColumnHelp returns the column names and datatypes of a queryable table.
func (c *Client) ColumnHelp(ctx context.Context, table string) (*tap.Result, error) {
	query := fmt.Sprintf(
		"select column_name, datatype from TAP_SCHEMA.columns where table_name = '%s'", table)
	return c.executor.Query(ctx, query, true)
}

// ListInstruments lists the instrument-specific tables offered by the
// archive, memoized per client instance. With useCache false the list is
// fetched live, bypassing both the memo and the on-disk cache.
func (c *Client) ListInstruments(ctx context.Context, useCache bool) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if useCache && c.instruments != nil {
		return c.instruments, nil
	}

	res, err := c.executor.Query(ctx,
		"select table_name from TAP_SCHEMA.tables where schema_name='ist' order by table_name", useCache)
	if err != nil {
		return nil, err
	}
	names, err := res.Table.Column("table_name")
	if err != nil {
		return nil, err
	}
	instruments := make([]string, 0, len(names))
	for _, name := range names {
		// Table names come back as "ist.<instrument>".
		if _, inst, ok := strings.Cut(name, "."); ok {
			instruments = append(instruments, inst)
		} else {
			instruments = append(instruments, name)
		}
	}
	c.instruments = instruments
	return instruments, nil
}

// ListCollections lists the phase-3 collections in the archive, memoized
// per client instance. With useCache false the list is fetched live,
// bypassing both the memo and the on-disk cache.
func (c *Client) ListCollections(ctx context.Context, useCache bool) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if useCache && c.collections != nil {
		return c.collections, nil
	}

	res, err := c.executor.Query(ctx,
		fmt.Sprintf("select distinct %s from %s", queryOnCollection.column, queryOnCollection.table), useCache)
	if err != nil {
		return nil, err
	}
	collections, err := res.Table.Column(queryOnCollection.column)
	if err != nil {
		return nil, err
	}
	c.collections = collections
	return collections, nil
}
