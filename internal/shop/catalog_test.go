package shop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCatalogClient_FetchProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]Product{
			{ID: "espresso", Name: "Espresso Beans", PriceCents: 1250, Stock: 40},
			{ID: "kettle", Name: "Kettle", PriceCents: 3000, Stock: 7},
		})
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, 5*time.Second)
	defer c.Close()

	products, err := c.FetchProducts(context.Background())
	if err != nil {
		t.Fatalf("FetchProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, expected 2", len(products))
	}
	if products[0].ID != "espresso" || products[0].PriceCents != 1250 {
		t.Errorf("first product = %+v, expected espresso at 1250", products[0])
	}
}

func TestCatalogClient_RetriesServerErrors(t *testing.T) {
	// Test: 5xx responses are transient and retried until success
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			http.Error(w, "catalog warming up", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]Product{{ID: "espresso"}})
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, 5*time.Second)
	defer c.Close()

	products, err := c.FetchProducts(context.Background())
	if err != nil {
		t.Fatalf("FetchProducts should succeed after retries: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("got %d products, expected 1", len(products))
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("server saw %d requests, expected 3", got)
	}
}

func TestCatalogClient_ClientErrorNotRetried(t *testing.T) {
	// Test: 4xx responses fail immediately without burning retries
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, 5*time.Second)
	defer c.Close()

	if _, err := c.FetchProducts(context.Background()); err == nil {
		t.Fatal("FetchProducts should fail on 404")
	}
	if got := requests.Load(); got != 1 {
		t.Errorf("server saw %d requests, expected 1", got)
	}
}

func TestCatalogClient_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, 5*time.Second)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := c.FetchProducts(ctx); err == nil {
		t.Fatal("FetchProducts should fail when the context expires")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("FetchProducts took %v, should give up with the context", elapsed)
	}
}
