package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchQueryEncoding(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"stationuuid":"u1","name":"Jazz FM","url_resolved":"http://jazz.example/stream","tags":"jazz,smooth","bitrate":192,"clickcount":1200,"votes":55}]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	results, err := c.Search(context.Background(), SearchParams{Name: "jazz", Limit: 50})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	want := map[string]string{
		"name":       "jazz",
		"limit":      "50",
		"order":      "clickcount",
		"reverse":    "true",
		"hidebroken": "true",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
	if _, present := gotQuery["tag"]; present {
		t.Error("empty tag must be omitted from the query")
	}

	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.UUID != "u1" || r.Name != "Jazz FM" || r.URL != "http://jazz.example/stream" {
		t.Errorf("decoded badly: %+v", r)
	}
	if r.Bitrate != 192 || r.ClickCount != 1200 || r.Votes != 55 {
		t.Errorf("numeric fields: %+v", r)
	}
}

func TestSearchTagDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tag") != "rock" {
			t.Errorf("tag = %q, want rock", r.URL.Query().Get("tag"))
		}
		if r.URL.Query().Get("name") != "" {
			t.Error("name must be absent on a tag search")
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Search(context.Background(), SearchParams{Tag: "rock"}); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestSearchNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Search(context.Background(), SearchParams{Name: "x"}); err == nil {
		t.Fatal("expected error on 502")
	}
}
