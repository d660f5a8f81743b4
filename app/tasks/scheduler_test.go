package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/veni-vici/app/ham"
)

// MockPageCounter implements PageCounter for testing
type MockPageCounter struct {
	mu       sync.Mutex
	pages    int
	cached   int
	calls    int
	resets   int
	failures int
	err      error
}

func (m *MockPageCounter) GetTotalPages(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	if m.failures > 0 {
		m.failures--
		return 0, errors.New("catalog unavailable")
	}
	m.cached = m.pages
	return m.pages, nil
}

func (m *MockPageCounter) CachedPages() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached, m.cached > 0
}

func (m *MockPageCounter) ResetPageCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	m.cached = 0
}

func (m *MockPageCounter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for condition")
}

func TestNewScheduler(t *testing.T) {
	scheduler := NewScheduler(&MockPageCounter{}, time.Minute, 0)

	if scheduler.workerCount != 1 {
		t.Errorf("Expected worker count to default to 1, got %d", scheduler.workerCount)
	}
	if scheduler.interval != time.Minute {
		t.Errorf("Expected interval 1m, got %v", scheduler.interval)
	}
}

func TestScheduler_WarmsPageCountOnStart(t *testing.T) {
	pages := &MockPageCounter{pages: 120}
	scheduler := NewScheduler(pages, 0, 2)

	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool {
		n, ok := pages.CachedPages()
		return ok && n == 120
	})
}

func TestScheduler_PeriodicRefresh(t *testing.T) {
	pages := &MockPageCounter{pages: 5}
	scheduler := NewScheduler(pages, 10*time.Millisecond, 1)

	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool { return pages.Calls() >= 3 })

	pages.mu.Lock()
	resets := pages.resets
	pages.mu.Unlock()
	if resets == 0 {
		t.Error("Expected periodic refresh to reset the cached count")
	}
}

func TestScheduler_RetriesFailedTask(t *testing.T) {
	pages := &MockPageCounter{pages: 9, failures: 2}
	scheduler := NewScheduler(pages, 0, 1)
	scheduler.retryBase = time.Millisecond

	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, func() bool {
		_, ok := pages.CachedPages()
		return ok
	})
	if calls := pages.Calls(); calls != 3 {
		t.Errorf("Expected 3 calls (2 failures + success), got %d", calls)
	}
}

func TestScheduler_EnqueueAfterStop(t *testing.T) {
	scheduler := NewScheduler(&MockPageCounter{}, 0, 1)
	scheduler.Start()
	scheduler.Stop()

	err := scheduler.EnqueueTask(NewRefreshPageCountTask(&MockPageCounter{}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestScheduler_QueueFull(t *testing.T) {
	scheduler := NewScheduler(&MockPageCounter{}, 0, 1)
	defer scheduler.Stop()

	for i := 0; i < defaultQueueSize; i++ {
		if err := scheduler.EnqueueTask(NewWarmPageCountTask(&MockPageCounter{})); err != nil {
			t.Fatalf("Unexpected enqueue error at %d: %v", i, err)
		}
	}
	if err := scheduler.EnqueueTask(NewWarmPageCountTask(&MockPageCounter{})); err == nil {
		t.Error("Expected queue full error")
	}
}

func TestScheduler_RetryDelay(t *testing.T) {
	scheduler := NewScheduler(&MockPageCounter{}, 0, 1)
	defer scheduler.Stop()

	tests := []struct {
		retry int
		want  time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := scheduler.retryDelay(tt.retry); got != tt.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tt.retry, got, tt.want)
		}
	}
}

func TestWarmPageCountTask_SkipsWhenCached(t *testing.T) {
	pages := &MockPageCounter{pages: 3, cached: 3}
	task := NewWarmPageCountTask(pages)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if pages.Calls() != 0 {
		t.Errorf("Expected no catalog calls, got %d", pages.Calls())
	}
}

func TestRefreshPageCountTask_ResetsAndReloads(t *testing.T) {
	pages := &MockPageCounter{pages: 8, cached: 3}
	task := NewRefreshPageCountTask(pages)

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if pages.resets != 1 || pages.calls != 1 {
		t.Errorf("Expected 1 reset and 1 call, got %d resets and %d calls", pages.resets, pages.calls)
	}
	if n, _ := pages.CachedPages(); n != 8 {
		t.Errorf("Expected cached count 8, got %d", n)
	}
}

func TestPageCountTask_MissingAPIKeyIsNotRetried(t *testing.T) {
	pages := &MockPageCounter{err: ham.ErrMissingAPIKey}
	task := NewRefreshPageCountTask(pages)

	if err := task.Execute(context.Background()); err != nil {
		t.Errorf("Expected nil error for missing key, got %v", err)
	}
}

func TestPageCountTask_PropagatesFailure(t *testing.T) {
	pages := &MockPageCounter{failures: 1}
	task := NewWarmPageCountTask(pages)

	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected error from failing catalog")
	}
}

func TestTask_RetryBookkeeping(t *testing.T) {
	task := NewTask(TaskTypeWarmPageCount)

	if task.ID == "" {
		t.Error("Expected task ID to be generated")
	}
	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}
	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}
