// Package pipeline sequences login, discovery, download and reporting for
// one course, retrying each phase on failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/veranemoloko/course-archive/internal/domain"
	errpkg "github.com/veranemoloko/course-archive/internal/errors"
	"github.com/veranemoloko/course-archive/internal/metrics"
	"github.com/veranemoloko/course-archive/internal/platform"
	"github.com/veranemoloko/course-archive/internal/progress"
	"github.com/veranemoloko/course-archive/internal/retry"
	"github.com/veranemoloko/course-archive/internal/worker"
)

// SessionState exposes the browser generation so that a restarted browser
// can be logged in again.
type SessionState interface {
	Generation() uint64
}

// Config tunes a run.
type Config struct {
	Concurrency int
	Policy      retry.Policy
	// Relogin replays login before a download attempt when the browser was
	// restarted since the last successful login.
	Relogin bool
}

// Outcome is what a finished run produced.
type Outcome struct {
	Tasks    []domain.DownloadTask
	Results  []domain.DownloadResult
	Failures []domain.TaskFailure
}

type Pipeline struct {
	downloader platform.Downloader
	session    SessionState
	cfg        Config
	progress   *progress.Tracker
	logger     *slog.Logger

	outMu sync.Mutex
	out   io.Writer

	loginMu  sync.Mutex
	loginGen uint64
}

// New creates a Pipeline. session may be nil, which disables relogin.
func New(downloader platform.Downloader, session SessionState, cfg Config, tracker *progress.Tracker, out io.Writer, logger *slog.Logger) *Pipeline {
	if cfg.Policy.Retryable == nil {
		cfg.Policy.Retryable = errpkg.Retryable
	}
	if tracker == nil {
		tracker = progress.NewTracker()
	}
	return &Pipeline{
		downloader: downloader,
		session:    session,
		cfg:        cfg,
		progress:   tracker,
		out:        out,
		logger:     logger,
	}
}

// Run executes every phase in order. A login, discovery or report failure
// aborts the run; failed downloads are recorded in the outcome.
func (p *Pipeline) Run(ctx context.Context) (*Outcome, error) {
	p.progress.SetPhase(domain.PhaseLogin)
	p.println("Logging in...")
	if err := p.login(ctx); err != nil {
		return nil, p.abort(err)
	}
	p.println("Logged in.")

	p.progress.SetPhase(domain.PhaseDiscover)
	p.println("Getting download tasks...")
	tasks, err := p.discover(ctx)
	if err != nil {
		return nil, p.abort(err)
	}
	p.progress.SetTasks(tasks)
	metrics.TasksDiscovered.Add(float64(len(tasks)))
	p.printf("Scheduled %d download tasks.\n", len(tasks))

	p.progress.SetPhase(domain.PhaseDownload)
	p.println("Downloading...")
	results, failures := p.download(ctx, tasks)

	p.progress.SetPhase(domain.PhaseReport)
	if err := p.downloader.ReportResults(results); err != nil {
		if !errors.Is(err, errpkg.ErrReport) {
			err = fmt.Errorf("%w: %w", errpkg.ErrReport, err)
		}
		return nil, p.abort(err)
	}

	p.progress.SetPhase(domain.PhaseDone)
	p.logger.Info("run finished",
		"tasks", len(tasks),
		"saved", len(results),
		"failed", len(failures),
	)
	return &Outcome{Tasks: tasks, Results: results, Failures: failures}, nil
}

func (p *Pipeline) abort(err error) error {
	p.logger.Error("run aborted", "phase", p.progress.Phase(), "error", err)
	p.progress.Abort(err)
	return err
}

func (p *Pipeline) login(ctx context.Context) error {
	attempts, err := retry.Do(ctx, p.cfg.Policy, func(ctx context.Context, attempt int) error {
		metrics.AttemptsTotal.WithLabelValues(string(domain.PhaseLogin)).Inc()
		gen := p.generation()
		if err := p.downloader.Login(ctx); err != nil {
			return err
		}
		p.loginMu.Lock()
		p.loginGen = gen
		p.loginMu.Unlock()
		return nil
	}, p.onRetry(domain.PhaseLogin))
	if err != nil {
		return phaseError(domain.PhaseLogin, attempts, errpkg.ErrAuth, err)
	}
	return nil
}

// discover runs task discovery from scratch on every attempt and returns
// the tasks with duplicates removed and indices renumbered.
func (p *Pipeline) discover(ctx context.Context) ([]domain.DownloadTask, error) {
	var tasks []domain.DownloadTask
	attempts, err := retry.Do(ctx, p.cfg.Policy, func(ctx context.Context, attempt int) error {
		metrics.AttemptsTotal.WithLabelValues(string(domain.PhaseDiscover)).Inc()
		var found []domain.DownloadTask
		for task, err := range p.downloader.DownloadTasks(ctx) {
			if err != nil {
				return err
			}
			found = append(found, task)
		}
		tasks = dedupe(found)
		return nil
	}, p.onRetry(domain.PhaseDiscover))
	if err != nil {
		return nil, phaseError(domain.PhaseDiscover, attempts, errpkg.ErrDiscovery, err)
	}

	for _, task := range tasks {
		p.logger.Debug("download task created",
			"task_id", task.ID,
			"index", task.Index,
			"name", task.Name,
			"url", task.URL,
		)
	}
	return tasks, nil
}

func (p *Pipeline) download(ctx context.Context, tasks []domain.DownloadTask) ([]domain.DownloadResult, []domain.TaskFailure) {
	pool := worker.NewDownloadWorker(p.cfg.Concurrency, p.cfg.Policy, p.logger)

	return pool.Run(ctx, tasks, func(ctx context.Context, task domain.DownloadTask, attempt int) (domain.DownloadResult, error) {
		if err := p.ensureLogin(ctx); err != nil {
			return domain.DownloadResult{}, err
		}
		return p.downloader.PerformDownload(ctx, task)
	}, worker.Hooks{
		OnStart: func(task domain.DownloadTask) {
			p.progress.SetStatus(task.ID, domain.TaskStatusDownloading)
			p.printf("Downloading task: %s\n", task.Name)
		},
		OnSuccess: func(result domain.DownloadResult) {
			p.progress.SetStatus(result.Task.ID, domain.TaskStatusCompleted)
			metrics.TasksCompleted.Inc()
			p.printf("Download complete: %s\n", result.Task.Name)
		},
		OnFailure: func(f domain.TaskFailure) {
			p.progress.Fail(f)
			metrics.TasksFailed.Inc()
			p.printf("Download failed: %s: %v\n", f.Task.Name, f.Err)
		},
	})
}

// ensureLogin replays login once per browser generation when the browser
// was restarted after the last successful login.
func (p *Pipeline) ensureLogin(ctx context.Context) error {
	if !p.cfg.Relogin || p.session == nil {
		return nil
	}

	p.loginMu.Lock()
	defer p.loginMu.Unlock()

	gen := p.session.Generation()
	if gen == p.loginGen {
		return nil
	}

	p.logger.Warn("browser was restarted, logging in again", "generation", gen)
	metrics.AttemptsTotal.WithLabelValues(string(domain.PhaseLogin)).Inc()
	if err := p.downloader.Login(ctx); err != nil {
		return fmt.Errorf("login after browser restart: %w", err)
	}
	p.loginGen = gen
	return nil
}

func (p *Pipeline) generation() uint64 {
	if p.session == nil {
		return 0
	}
	return p.session.Generation()
}

func (p *Pipeline) onRetry(phase domain.Phase) retry.OnRetry {
	return func(attempt int, err error, wait time.Duration) {
		metrics.RetriesTotal.WithLabelValues(string(phase)).Inc()
		p.logger.Warn("phase attempt failed, retrying",
			"phase", phase,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	}
}

func (p *Pipeline) println(msg string) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintln(p.out, msg)
}

func (p *Pipeline) printf(format string, args ...any) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// phaseError wraps err in the taxonomy sentinel of the phase unless it
// already carries it.
func phaseError(phase domain.Phase, attempts int, sentinel, err error) error {
	if !errors.Is(err, sentinel) {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return &errpkg.PhaseError{Phase: string(phase), Attempts: attempts, Err: err}
}

// dedupe drops tasks whose id was already seen and renumbers the rest so
// that indices stay contiguous from zero.
func dedupe(tasks []domain.DownloadTask) []domain.DownloadTask {
	seen := make(map[string]struct{}, len(tasks))
	out := make([]domain.DownloadTask, 0, len(tasks))
	for _, task := range tasks {
		if _, ok := seen[task.ID]; ok {
			continue
		}
		seen[task.ID] = struct{}{}
		task.Index = len(out)
		out = append(out, task)
	}
	return out
}
