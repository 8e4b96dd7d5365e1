package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainerrors "adpilot/contexts/campaign-builder/launch-service/domain/errors"
	"adpilot/contexts/campaign-builder/launch-service/ports"

	"github.com/hibiken/asynq"
)

const (
	TaskLaunchExecute = "launch:execute"
	DefaultQueueName  = "launch"
)

// AsynqOptions configures the Redis-backed queue.
type AsynqOptions struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Queue         string
	Concurrency   int
	// TaskTimeout bounds one whole launch inside the asynq worker.
	TaskTimeout time.Duration
}

// Asynq hands launch tasks between the API and the worker process through
// Redis. Tasks never retry; a failed launch is resubmitted as a new job.
type Asynq struct {
	client  *asynq.Client
	options AsynqOptions
	logger  *slog.Logger
}

func NewAsynq(options AsynqOptions, logger *slog.Logger) (*Asynq, error) {
	if strings.TrimSpace(options.RedisAddr) == "" {
		return nil, fmt.Errorf("asynq queue requires a redis address")
	}
	if strings.TrimSpace(options.Queue) == "" {
		options.Queue = DefaultQueueName
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Asynq{
		client:  asynq.NewClient(options.redisOpt()),
		options: options,
		logger:  logger,
	}, nil
}

func (o AsynqOptions) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     o.RedisAddr,
		Password: o.RedisPassword,
		DB:       o.RedisDB,
	}
}

func (q *Asynq) Enqueue(ctx context.Context, task ports.LaunchTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrEnqueueFailed, err)
	}
	opts := []asynq.Option{
		asynq.Queue(q.options.Queue),
		asynq.MaxRetry(0),
		asynq.TaskID(task.JobID),
	}
	if q.options.TaskTimeout > 0 {
		opts = append(opts, asynq.Timeout(q.options.TaskTimeout))
	}
	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskLaunchExecute, payload), opts...)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrEnqueueFailed, err)
	}
	q.logger.Info("launch task enqueued",
		"event", "launch_task_enqueued",
		"module", "campaign-builder/launch-service",
		"layer", "adapter",
		"job_id", task.JobID,
		"queue", info.Queue,
	)
	return nil
}

// Consume runs an asynq server until ctx ends.
func (q *Asynq) Consume(ctx context.Context, handler ports.LaunchHandler) error {
	server := asynq.NewServer(q.options.redisOpt(), asynq.Config{
		Concurrency: q.options.Concurrency,
		Queues:      map[string]int{q.options.Queue: 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskLaunchExecute, func(taskCtx context.Context, task *asynq.Task) error {
		var decoded ports.LaunchTask
		if err := json.Unmarshal(task.Payload(), &decoded); err != nil {
			return fmt.Errorf("decode %s payload: %v: %w", TaskLaunchExecute, err, asynq.SkipRetry)
		}
		if strings.TrimSpace(decoded.JobID) == "" {
			return fmt.Errorf("%s payload missing job_id: %w", TaskLaunchExecute, asynq.SkipRetry)
		}
		return handler(taskCtx, decoded)
	})
	if err := server.Start(mux); err != nil {
		return err
	}
	q.logger.Info("asynq launch consumer started",
		"event", "launch_consumer_started",
		"module", "campaign-builder/launch-service",
		"layer", "adapter",
		"queue", q.options.Queue,
		"concurrency", q.options.Concurrency,
	)
	<-ctx.Done()
	server.Shutdown()
	return nil
}

func (q *Asynq) Close() error {
	return q.client.Close()
}
