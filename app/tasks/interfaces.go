package tasks

import "context"

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to run catalog maintenance in the
// background.
// Example usage:
//
//	scheduler := NewScheduler(client, refreshInterval, workerCount)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshPageCountTask(client))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// PageCounter is the slice of the catalog gateway that owns the cached
// total page count.
type PageCounter interface {
	GetTotalPages(ctx context.Context) (int, error)
	CachedPages() (int, bool)
	ResetPageCount()
}
