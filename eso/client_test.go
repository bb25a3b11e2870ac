package eso

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/esotap/adql"
	"github.com/jonwraymond/esotap/cache"
)

// fakeArchive bundles the fake TAP endpoint with a client wired to it.
type fakeArchive struct {
	client  *Client
	queries []string
	hits    atomic.Int64
}

// newFakeArchive serves csv for every TAP query and records the query
// texts it sees.
func newFakeArchive(t *testing.T, csv string) *fakeArchive {
	t.Helper()
	fa := &fakeArchive{}

	mux := http.NewServeMux()
	mux.HandleFunc("/tap/sync", func(w http.ResponseWriter, r *http.Request) {
		fa.hits.Add(1)
		_ = r.ParseForm()
		fa.queries = append(fa.queries, r.PostForm.Get("QUERY"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csv))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		TAPEndpoint: srv.URL + "/tap",
		SSOEndpoint: srv.URL + "/token",
		CacheDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	fa.client = client
	return fa
}

func TestClient_QueryInstrument(t *testing.T) {
	fa := newFakeArchive(t, "object,dp_id\nM83,HARPS.2024-01-01T00:00:00.000\n")

	res, err := fa.client.QueryInstrument(context.Background(), []string{"HARPS"}, QueryOptions{})
	if err != nil {
		t.Fatalf("QueryInstrument failed: %v", err)
	}
	if res.Empty || res.Table.NumRows() != 1 {
		t.Errorf("unexpected result: %+v", res)
	}

	want := "select top 50 * from dbo.raw where instrument in ('HARPS')"
	if fa.queries[0] != want {
		t.Errorf("query = %q, want %q", fa.queries[0], want)
	}
}

func TestClient_QueryOptionsRendering(t *testing.T) {
	fa := newFakeArchive(t, "object,ra\nM83,204.25\n")

	expTime, err := adql.Expr(">", "300")
	if err != nil {
		t.Fatalf("Expr failed: %v", err)
	}
	top := 10
	_, err = fa.client.QueryInstrument(context.Background(), []string{"HARPS", "FORS2"}, QueryOptions{
		Columns:    []string{"object", "ra"},
		Filters:    map[string]adql.Value{"exp_time": expTime, "pi_coi": adql.String("like '%Hubble%'")},
		ConeRA:     floatp(123.25),
		ConeDec:    floatp(-30.5),
		ConeRadius: floatp(0.1775),
		OrderBy:    "exp_time",
		OrderDesc:  true,
		Top:        &top,
	})
	if err != nil {
		t.Fatalf("QueryInstrument failed: %v", err)
	}

	want := "select top 10 object, ra from dbo.raw" +
		" where instrument in ('HARPS', 'FORS2')" +
		" and exp_time > 300 and pi_coi like '%Hubble%'" +
		" and intersects(s_region, circle('ICRS', 123.25, -30.5, 0.1775))=1" +
		" order by exp_time desc"
	if fa.queries[0] != want {
		t.Errorf("query = %q, want %q", fa.queries[0], want)
	}
}

func TestClient_QueryCollections(t *testing.T) {
	fa := newFakeArchive(t, "target_name,dp_id\nM83,X.2024\n")

	_, err := fa.client.QueryCollections(context.Background(), []string{"VVV"}, QueryOptions{})
	if err != nil {
		t.Fatalf("QueryCollections failed: %v", err)
	}
	want := "select top 50 * from ivoa.ObsCore where obs_collection in ('VVV')"
	if fa.queries[0] != want {
		t.Errorf("query = %q, want %q", fa.queries[0], want)
	}
}

func TestClient_QueryMain_TimeBounds(t *testing.T) {
	fa := newFakeArchive(t, "object\nM83\n")

	_, err := fa.client.QueryMain(context.Background(), QueryOptions{
		StartTime: "2024-01-01 00:00:00",
		EndTime:   "2024-06-01 00:00:00",
	})
	if err != nil {
		t.Fatalf("QueryMain failed: %v", err)
	}
	want := "select top 50 * from dbo.raw" +
		" where date_obs between '2024-01-01 00:00:00' and '2024-06-01 00:00:00'"
	if fa.queries[0] != want {
		t.Errorf("query = %q, want %q", fa.queries[0], want)
	}
}

func TestClient_ConstructionErrorsBeforeNetwork(t *testing.T) {
	fa := newFakeArchive(t, "object\n")

	_, err := fa.client.QueryInstrument(context.Background(), []string{"HARPS"}, QueryOptions{
		Filters: map[string]adql.Value{"box": adql.String("10")},
	})
	if !errors.Is(err, adql.ErrDeprecatedKey) {
		t.Errorf("deprecated key err = %v, want ErrDeprecatedKey", err)
	}

	_, err = fa.client.QueryInstrument(context.Background(), []string{"HARPS"}, QueryOptions{
		ConeRA: floatp(12.5),
	})
	if !errors.Is(err, adql.ErrPartialCone) {
		t.Errorf("partial cone err = %v, want ErrPartialCone", err)
	}

	// Time bounds own the date_obs column; a caller filter on it at the
	// same time would be silently shadowed otherwise.
	_, err = fa.client.QueryInstrument(context.Background(), []string{"HARPS"}, QueryOptions{
		Filters:   map[string]adql.Value{"date_obs": adql.String("like '2024%'")},
		StartTime: "2024-01-01 00:00:00",
	})
	if !errors.Is(err, ErrDateFilterClash) {
		t.Errorf("date filter clash err = %v, want ErrDateFilterClash", err)
	}

	if fa.hits.Load() != 0 {
		t.Errorf("construction errors must fail before any network call, saw %d requests", fa.hits.Load())
	}
}

func TestClient_ListInstruments(t *testing.T) {
	fa := newFakeArchive(t, "table_name\nist.harps\nist.midi\nist.uves\n")

	ctx := context.Background()
	instruments, err := fa.client.ListInstruments(ctx, true)
	if err != nil {
		t.Fatalf("ListInstruments failed: %v", err)
	}
	want := []string{"harps", "midi", "uves"}
	if len(instruments) != len(want) {
		t.Fatalf("instruments = %v, want %v", instruments, want)
	}
	for i := range want {
		if instruments[i] != want[i] {
			t.Fatalf("instruments = %v, want %v", instruments, want)
		}
	}

	// Memoized: no second round trip.
	if _, err := fa.client.ListInstruments(ctx, true); err != nil {
		t.Fatalf("second ListInstruments failed: %v", err)
	}
	if fa.hits.Load() != 1 {
		t.Errorf("service hit %d times, want 1 (memoized)", fa.hits.Load())
	}

	// useCache=false refreshes past both the memo and the disk cache.
	if _, err := fa.client.ListInstruments(ctx, false); err != nil {
		t.Fatalf("uncached ListInstruments failed: %v", err)
	}
	if fa.hits.Load() != 2 {
		t.Errorf("service hit %d times, want 2 after cache bypass", fa.hits.Load())
	}
}

func TestClient_ListCollections(t *testing.T) {
	fa := newFakeArchive(t, "obs_collection\nVVV\nXSHOOTER\n")

	collections, err := fa.client.ListCollections(context.Background(), true)
	if err != nil {
		t.Fatalf("ListCollections failed: %v", err)
	}
	if len(collections) != 2 || collections[0] != "VVV" {
		t.Errorf("collections = %v", collections)
	}
	want := "select distinct obs_collection from ivoa.ObsCore"
	if fa.queries[0] != want {
		t.Errorf("query = %q, want %q", fa.queries[0], want)
	}
}

func TestClient_RowLimitDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("object\nM83\n"))
	}))
	t.Cleanup(srv.Close)

	noCache := cache.NoCachePolicy()
	client, err := New(Config{
		TAPEndpoint: srv.URL,
		CacheDir:    t.TempDir(),
		RowLimit:    -1,
		CachePolicy: &noCache,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	query, err := client.buildQuery(queryOnInstrument, []string{"HARPS"}, QueryOptions{})
	if err != nil {
		t.Fatalf("buildQuery failed: %v", err)
	}
	want := "select * from dbo.raw where instrument in ('HARPS')"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
}

func TestConfig_WithDefaultsCachePolicy(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.CachePolicy == nil || cfg.CachePolicy.TTL != cache.DefaultPolicy().TTL {
		t.Errorf("nil policy should default, got %+v", cfg.CachePolicy)
	}

	// An explicit zero policy means cache forever; it must survive
	// defaulting instead of being replaced by the 7-day default.
	forever := cache.Policy{}
	cfg = Config{CachePolicy: &forever}.withDefaults()
	if cfg.CachePolicy.TTL != 0 || cfg.CachePolicy.Disabled {
		t.Errorf("explicit zero policy replaced: %+v", cfg.CachePolicy)
	}
}

func floatp(f float64) *float64 { return &f }
