package ham

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeCatalog struct {
	pages       int
	pageCalls   atomic.Int32
	recordCalls atomic.Int32
	lastPage    atomic.Value
	status      int
	empty       bool
}

func (f *fakeCatalog) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "secret" {
			t.Errorf("Expected apikey 'secret', got '%s'", q.Get("apikey"))
		}
		if q.Get("hasimage") != "1" || q.Get("size") != "1" {
			t.Errorf("Expected hasimage=1&size=1, got %s", r.URL.RawQuery)
		}
		if f.status != 0 {
			w.WriteHeader(f.status)
			w.Write([]byte(`{"error":"nope"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if q.Get("fields") == "id" {
			f.pageCalls.Add(1)
			if f.pages == 0 {
				w.Write([]byte(`{"records":[{"id":1}]}`))
				return
			}
			w.Write([]byte(`{"info":{"pages":` + strconv.Itoa(f.pages) + `},"records":[{"id":1}]}`))
			return
		}

		f.recordCalls.Add(1)
		f.lastPage.Store(q.Get("page"))
		if q.Get("fields") != RecordFields {
			t.Errorf("Expected fields %q, got %q", RecordFields, q.Get("fields"))
		}
		if f.empty {
			w.Write([]byte(`{"info":{"pages":3},"records":[]}`))
			return
		}
		w.Write([]byte(`{"info":{"pages":3},"records":[{"id":42,"title":"Vase","culture":"Greek","people":[{"name":"Unknown Potter"}],"primaryimageurl":"https://img/42.jpg"}]}`))
	}
}

func newTestClient(t *testing.T, catalog *fakeCatalog, apiKey string) *Client {
	t.Helper()
	server := httptest.NewServer(catalog.handler(t))
	t.Cleanup(server.Close)

	return NewClient(server.Client(), ClientConfig{
		BaseURL:   server.URL,
		APIKey:    apiKey,
		UserAgent: "Veni Vici/test",
	})
}

func TestGetTotalPages_CachesAfterFirstCall(t *testing.T) {
	catalog := &fakeCatalog{pages: 120}
	client := newTestClient(t, catalog, "secret")

	for i := 0; i < 5; i++ {
		pages, err := client.GetTotalPages(context.Background())
		if err != nil {
			t.Fatalf("GetTotalPages failed: %v", err)
		}
		if pages != 120 {
			t.Errorf("Expected 120 pages, got %d", pages)
		}
	}

	if got := catalog.pageCalls.Load(); got != 1 {
		t.Errorf("Expected exactly 1 page-count request, got %d", got)
	}
}

func TestGetTotalPages_DefaultsToOneWhenInfoMissing(t *testing.T) {
	catalog := &fakeCatalog{}
	client := newTestClient(t, catalog, "secret")

	pages, err := client.GetTotalPages(context.Background())
	if err != nil {
		t.Fatalf("GetTotalPages failed: %v", err)
	}
	if pages != 1 {
		t.Errorf("Expected default of 1 page, got %d", pages)
	}
}

func TestGetTotalPages_ConcurrentCallersShareCache(t *testing.T) {
	catalog := &fakeCatalog{pages: 7}
	client := newTestClient(t, catalog, "secret")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.GetTotalPages(context.Background()); err != nil {
				t.Errorf("GetTotalPages failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if pages, ok := client.CachedPages(); !ok || pages != 7 {
		t.Errorf("Expected cached 7 pages, got %d (cached=%v)", pages, ok)
	}
	// Concurrent first fetches may race past the cache but always agree on the value.
	if got := catalog.pageCalls.Load(); got < 1 {
		t.Errorf("Expected at least 1 page-count request, got %d", got)
	}
}

func TestGetTotalPages_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"info":{"pages":9},"records":[{"id":1}]}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.Client(), ClientConfig{BaseURL: server.URL, APIKey: "secret"})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := client.GetTotalPages(ctxA)
		errA <- err
	}()
	<-started

	type result struct {
		pages int
		err   error
	}
	resB := make(chan result, 1)
	go func() {
		pages, err := client.GetTotalPages(context.Background())
		resB <- result{pages, err}
	}()

	// Give the second caller time to join the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	cancelA()

	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected cancelled caller to get context.Canceled, got %v", err)
	}

	close(release)

	res := <-resB
	if res.err != nil {
		t.Fatalf("Expected live caller to succeed, got %v", res.err)
	}
	if res.pages != 9 {
		t.Errorf("Expected 9 pages, got %d", res.pages)
	}
	if pages, ok := client.CachedPages(); !ok || pages != 9 {
		t.Errorf("Expected cached 9 pages, got %d (cached=%v)", pages, ok)
	}
}

func TestResetPageCount_ForcesRefetch(t *testing.T) {
	catalog := &fakeCatalog{pages: 4}
	client := newTestClient(t, catalog, "secret")

	if _, err := client.GetTotalPages(context.Background()); err != nil {
		t.Fatal(err)
	}
	client.ResetPageCount()
	if _, ok := client.CachedPages(); ok {
		t.Error("Expected cache to be empty after reset")
	}
	if _, err := client.GetTotalPages(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := catalog.pageCalls.Load(); got != 2 {
		t.Errorf("Expected 2 page-count requests after reset, got %d", got)
	}
}

func TestFetchOneRandomRecord_UsesRandomPage(t *testing.T) {
	catalog := &fakeCatalog{pages: 10}
	client := newTestClient(t, catalog, "secret")
	client.SetRandom(func(n int) int {
		if n != 10 {
			t.Errorf("Expected picker bound 10, got %d", n)
		}
		return 6
	})

	record, err := client.FetchOneRandomRecord(context.Background())
	if err != nil {
		t.Fatalf("FetchOneRandomRecord failed: %v", err)
	}
	if record == nil {
		t.Fatal("Expected a record, got nil")
	}
	if record.ID == nil || *record.ID != 42 {
		t.Errorf("Expected record id 42, got %v", record.ID)
	}
	if record.PrimaryImageURL == nil || *record.PrimaryImageURL != "https://img/42.jpg" {
		t.Errorf("Unexpected primary image URL: %v", record.PrimaryImageURL)
	}
	if got := catalog.lastPage.Load(); got != "7" {
		t.Errorf("Expected page 7, got %v", got)
	}
}

func TestFetchOneRandomRecord_EmptyPageReturnsNil(t *testing.T) {
	catalog := &fakeCatalog{pages: 3, empty: true}
	client := newTestClient(t, catalog, "secret")

	record, err := client.FetchOneRandomRecord(context.Background())
	if err != nil {
		t.Fatalf("FetchOneRandomRecord failed: %v", err)
	}
	if record != nil {
		t.Errorf("Expected nil record for empty page, got %+v", record)
	}
}

func TestFetchOneRandomRecord_MissingAPIKeyMakesNoRequest(t *testing.T) {
	catalog := &fakeCatalog{pages: 3}
	client := newTestClient(t, catalog, "   ")

	_, err := client.FetchOneRandomRecord(context.Background())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("Expected ErrMissingAPIKey, got %v", err)
	}
	if catalog.pageCalls.Load()+catalog.recordCalls.Load() != 0 {
		t.Error("Expected no network requests without an API key")
	}
}

func TestFetchOneRandomRecord_StatusError(t *testing.T) {
	catalog := &fakeCatalog{status: http.StatusUnauthorized}
	client := newTestClient(t, catalog, "secret")

	_, err := client.FetchOneRandomRecord(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", statusErr.StatusCode)
	}
	if strings.Contains(statusErr.URL, "secret") {
		t.Errorf("API key leaked into error URL: %s", statusErr.URL)
	}
}

func TestPageCursor(t *testing.T) {
	var cursor PageCursor
	if _, ok := cursor.Get(); ok {
		t.Error("Expected empty cursor")
	}
	cursor.Set(9)
	if pages, ok := cursor.Get(); !ok || pages != 9 {
		t.Errorf("Expected 9 pages, got %d", pages)
	}
	cursor.Reset()
	if _, ok := cursor.Get(); ok {
		t.Error("Expected cursor to be cleared")
	}
}
