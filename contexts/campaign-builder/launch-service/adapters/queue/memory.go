package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"
)

const defaultBuffer = 256

var ErrQueueClosed = errors.New("launch queue closed")

// Memory is an in-process LaunchQueue and LaunchSource backed by a buffered
// channel. Tasks are lost when the process exits; the stale-job reaper
// resolves whatever they leave running.
type Memory struct {
	mu      sync.RWMutex
	tasks   chan ports.LaunchTask
	closed  bool
	workers int
	wg      sync.WaitGroup
	logger  *slog.Logger
}

func NewMemory(buffer int, workers int, logger *slog.Logger) *Memory {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		tasks:   make(chan ports.LaunchTask, buffer),
		workers: workers,
		logger:  logger,
	}
}

func (m *Memory) Enqueue(ctx context.Context, task ports.LaunchTask) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return fmt.Errorf("%w: %w", domainerrors.ErrEnqueueFailed, ErrQueueClosed)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case m.tasks <- task:
		m.logger.Debug("launch task enqueued",
			"event", "launch_task_enqueued",
			"module", "campaign-builder/launch-service",
			"layer", "adapter",
			"job_id", task.JobID,
		)
		return nil
	default:
		return fmt.Errorf("%w: queue full", domainerrors.ErrEnqueueFailed)
	}
}

// Consume starts the worker goroutines and returns immediately. Workers
// stop when ctx ends or the queue is closed.
func (m *Memory) Consume(ctx context.Context, handler ports.LaunchHandler) error {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task, ok := <-m.tasks:
					if !ok {
						return
					}
					m.handle(ctx, handler, task)
				}
			}
		}()
	}
	return nil
}

func (m *Memory) handle(ctx context.Context, handler ports.LaunchHandler, task ports.LaunchTask) {
	defer func() {
		if recovered := recover(); recovered != nil {
			m.logger.Error("launch task handler panicked",
				"event", "launch_task_panic",
				"module", "campaign-builder/launch-service",
				"layer", "adapter",
				"job_id", task.JobID,
				"panic", fmt.Sprint(recovered),
			)
		}
	}()
	if err := handler(ctx, task); err != nil {
		m.logger.Error("launch task failed",
			"event", "launch_task_failed",
			"module", "campaign-builder/launch-service",
			"layer", "adapter",
			"job_id", task.JobID,
			"error", err.Error(),
		)
	}
}

// Close rejects further tasks and waits for workers to drain what is
// already buffered.
func (m *Memory) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.tasks)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Wait blocks until every worker has returned.
func (m *Memory) Wait() {
	m.wg.Wait()
}
