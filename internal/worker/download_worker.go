package worker

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/veranemoloko/course-archive/internal/domain"
	"github.com/veranemoloko/course-archive/internal/metrics"
	"github.com/veranemoloko/course-archive/internal/retry"
	"golang.org/x/sync/errgroup"
)

// TaskFunc performs one attempt of a task.
type TaskFunc func(ctx context.Context, task domain.DownloadTask, attempt int) (domain.DownloadResult, error)

// Hooks are notified as tasks move through the pool. Nil hooks are skipped.
type Hooks struct {
	OnStart   func(task domain.DownloadTask)
	OnRetry   func(task domain.DownloadTask, attempt int, err error, wait time.Duration)
	OnSuccess func(result domain.DownloadResult)
	OnFailure func(failure domain.TaskFailure)
}

// DownloadWorker runs task attempts with bounded parallelism. A task holds
// its slot for all of its retries.
type DownloadWorker struct {
	limit  int
	policy retry.Policy
	logger *slog.Logger
}

// NewDownloadWorker creates a pool of limit slots. A limit below one is
// treated as one.
func NewDownloadWorker(limit int, policy retry.Policy, logger *slog.Logger) *DownloadWorker {
	if limit < 1 {
		limit = 1
	}
	return &DownloadWorker{
		limit:  limit,
		policy: policy,
		logger: logger,
	}
}

// Limit returns the number of slots.
func (w *DownloadWorker) Limit() int {
	return w.limit
}

// Run attempts every task exactly once through the pool. Successful results
// and failures are both returned in task index order. A failed task never
// affects its siblings.
func (w *DownloadWorker) Run(ctx context.Context, tasks []domain.DownloadTask, fn TaskFunc, hooks Hooks) ([]domain.DownloadResult, []domain.TaskFailure) {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		results  = make(map[string]domain.DownloadResult, len(tasks))
		failures []domain.TaskFailure
	)
	g.SetLimit(w.limit)

	for _, task := range tasks {
		g.Go(func() error {
			result, attempts, err := w.runTask(ctx, task, fn, hooks)

			mu.Lock()
			if err != nil {
				failures = append(failures, domain.TaskFailure{Task: task, Attempts: attempts, Err: err})
			} else {
				results[task.ID] = result
			}
			mu.Unlock()

			if err != nil {
				w.logger.Error("task failed",
					"task_id", task.ID,
					"name", task.Name,
					"attempts", attempts,
					"error", err,
				)
				if hooks.OnFailure != nil {
					hooks.OnFailure(domain.TaskFailure{Task: task, Attempts: attempts, Err: err})
				}
				return nil
			}
			if hooks.OnSuccess != nil {
				hooks.OnSuccess(result)
			}
			return nil
		})
	}
	_ = g.Wait()

	ordered := make([]domain.DownloadResult, 0, len(results))
	for _, r := range results {
		ordered = append(ordered, r)
	}
	slices.SortFunc(ordered, func(a, b domain.DownloadResult) int { return a.Task.Index - b.Task.Index })
	slices.SortFunc(failures, func(a, b domain.TaskFailure) int { return a.Task.Index - b.Task.Index })

	return ordered, failures
}

func (w *DownloadWorker) runTask(ctx context.Context, task domain.DownloadTask, fn TaskFunc, hooks Hooks) (domain.DownloadResult, int, error) {
	metrics.TasksInFlight.Inc()
	defer metrics.TasksInFlight.Dec()

	if err := ctx.Err(); err != nil {
		return domain.DownloadResult{}, 0, err
	}
	if hooks.OnStart != nil {
		hooks.OnStart(task)
	}

	var result domain.DownloadResult
	attempts, err := retry.Do(ctx, w.policy, func(ctx context.Context, attempt int) error {
		metrics.AttemptsTotal.WithLabelValues(string(domain.PhaseDownload)).Inc()
		start := time.Now()

		r, err := fn(ctx, task, attempt)
		if err != nil {
			return err
		}
		metrics.DownloadDuration.Observe(time.Since(start).Seconds())
		r.Task = task
		result = r
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		metrics.RetriesTotal.WithLabelValues(string(domain.PhaseDownload)).Inc()
		w.logger.Warn("task attempt failed, retrying",
			"task_id", task.ID,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
		if hooks.OnRetry != nil {
			hooks.OnRetry(task, attempt, err, wait)
		}
	})
	return result, attempts, err
}
