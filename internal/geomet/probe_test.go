package geomet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

func newTestClient(serverURL string) *Client {
	return NewClient(ClientConfig{BaseURL: serverURL})
}

func TestNumberMatchedReadsCount(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"numberMatched": 42}`))
	}))
	defer srv.Close()

	params := url.Values{}
	params.Set("limit", "10000")
	params.Set("offset", "500")

	got := newTestClient(srv.URL).NumberMatched(context.Background(), "climate-daily", params)
	if got != 42 {
		t.Fatalf("NumberMatched = %d, want 42", got)
	}

	// The probe variant overrides paging but must not mutate the
	// caller's descriptor.
	if gotQuery.Get("f") != "json" || gotQuery.Get("items") != "1" || gotQuery.Get("offset") != "0" {
		t.Fatalf("probe query missing count-only parameters: %v", gotQuery)
	}
	if params.Get("offset") != "500" {
		t.Fatalf("caller params mutated: offset = %s", params.Get("offset"))
	}
}

func TestNumberMatchedDegradesToZero(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx status", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"undecodable body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>busy</html>"))
		}},
		{"count field absent", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"numberReturned": 1}`))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			got := newTestClient(srv.URL).NumberMatched(context.Background(), "climate-daily", url.Values{})
			if got != 0 {
				t.Fatalf("NumberMatched = %d, want 0", got)
			}
		})
	}
}

func TestUnqueryablePropertiesFiltersAgainstDeclaredSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/climate-daily/queryables" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"properties": {
			"A": {"title": "A", "type": "string"},
			"untitled": {"type": "string"}
		}}`))
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).UnqueryableProperties(context.Background(), "climate-daily", []string{"A", "B"})
	if !reflect.DeepEqual(got, []string{"B"}) {
		t.Fatalf("unqueryable = %v, want [B]", got)
	}
}

func TestUnqueryablePropertiesOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	// A failed metadata fetch degrades to an empty allowed set, so every
	// requested property comes back unqueryable.
	got := newTestClient(srv.URL).UnqueryableProperties(context.Background(), "climate-daily", []string{"A", "B"})
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("unqueryable = %v, want [A B]", got)
	}
}
