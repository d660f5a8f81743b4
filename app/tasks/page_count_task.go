package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/veni-vici/app/ham"
)

// WarmPageCountTask fills the page count cache so the first discovery does
// not pay for the extra catalog round trip.
type WarmPageCountTask struct {
	Task
	pages PageCounter
}

func NewWarmPageCountTask(pages PageCounter) *WarmPageCountTask {
	return &WarmPageCountTask{
		Task:  NewTask(TaskTypeWarmPageCount),
		pages: pages,
	}
}

func (t *WarmPageCountTask) Execute(ctx context.Context) error {
	if n, ok := t.pages.CachedPages(); ok {
		slog.Debug("Page count already cached", "pages", n)
		return nil
	}
	return loadPageCount(ctx, t.pages)
}

// RefreshPageCountTask drops the cached page count and loads it again.
type RefreshPageCountTask struct {
	Task
	pages PageCounter
}

func NewRefreshPageCountTask(pages PageCounter) *RefreshPageCountTask {
	return &RefreshPageCountTask{
		Task:  NewTask(TaskTypeRefreshPageCount),
		pages: pages,
	}
}

func (t *RefreshPageCountTask) Execute(ctx context.Context) error {
	t.pages.ResetPageCount()
	return loadPageCount(ctx, t.pages)
}

func loadPageCount(ctx context.Context, pages PageCounter) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := pages.GetTotalPages(ctx)
	if errors.Is(err, ham.ErrMissingAPIKey) {
		// Retrying cannot help until the key is configured.
		slog.Warn("Skipping page count load, catalog API key is not configured")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load page count: %w", err)
	}

	slog.Info("Catalog page count loaded", "pages", n)
	return nil
}
