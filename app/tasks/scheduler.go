package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultQueueSize = 32
	maxRetryDelay    = 30 * time.Second
	taskTimeout      = 5 * time.Minute
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	pages       PageCounter
	interval    time.Duration
	workerCount int
	retryBase   time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

// NewScheduler creates a worker pool for catalog maintenance. An interval of
// zero disables periodic page count refreshes.
func NewScheduler(pages PageCounter, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount < 1 {
		workerCount = 1
	}

	return &Scheduler{
		pages:       pages,
		interval:    interval,
		workerCount: workerCount,
		retryBase:   time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, defaultQueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.enqueueStartupTasks()

	if s.interval <= 0 {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueTask(NewRefreshPageCountTask(s.pages)); err != nil {
					slog.Warn("Failed to enqueue RefreshPageCountTask", "error", err)
				}
			}
		}
	}()
}

// Stop cancels running tasks and waits for the workers to exit. Queued tasks
// are dropped.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if err := s.EnqueueTask(NewWarmPageCountTask(s.pages)); err != nil {
		slog.Warn("Failed to enqueue WarmPageCountTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		slog.Debug("Task completed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration().String())
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := s.retryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// retryDelay doubles per retry starting at retryBase, capped at maxRetryDelay.
func (s *Scheduler) retryDelay(retryCount int) time.Duration {
	delay := s.retryBase * time.Duration(1<<uint(retryCount-1))
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
