package main

import (
	"context"
	"strings"
	"testing"

	"github.com/jonwraymond/esotap/config"
)

func TestQueryFlags_QueryOptions(t *testing.T) {
	qf := &queryFlags{
		filters: []string{"object=M83", "exp_time=> 300"},
		cone:    []float64{123.25, -30.5, 0.1775},
		top:     5,
	}
	queryOpts, err := qf.queryOptions(true)
	if err != nil {
		t.Fatalf("queryOptions failed: %v", err)
	}
	if len(queryOpts.Filters) != 2 {
		t.Errorf("filters = %v", queryOpts.Filters)
	}
	if queryOpts.ConeRA == nil || *queryOpts.ConeRA != 123.25 {
		t.Errorf("ConeRA = %v", queryOpts.ConeRA)
	}
	if queryOpts.Top == nil || *queryOpts.Top != 5 {
		t.Errorf("Top = %v", queryOpts.Top)
	}
	if !queryOpts.NoCache {
		t.Error("NoCache not propagated")
	}
}

func TestQueryFlags_BadFilter(t *testing.T) {
	qf := &queryFlags{filters: []string{"no-equals-sign"}}
	if _, err := qf.queryOptions(false); err == nil {
		t.Fatal("expected error for filter without =")
	}
}

func TestOptions_DevConflictsWithConfiguredEndpoint(t *testing.T) {
	opts := &options{
		dev: true,
		cfg: &config.File{TAPEndpoint: "https://archive.eso.org/tap_obs"},
	}
	_, _, err := opts.newClient(context.Background())
	if err == nil || !strings.Contains(err.Error(), "--dev conflicts") {
		t.Fatalf("err = %v, want --dev conflict", err)
	}
}

func TestQueryFlags_BadCone(t *testing.T) {
	qf := &queryFlags{cone: []float64{1, 2}}
	if _, err := qf.queryOptions(false); err == nil {
		t.Fatal("expected error for two-element cone")
	}
}
