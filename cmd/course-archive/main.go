package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	h "github.com/veranemoloko/course-archive/internal/api/http"
	"github.com/veranemoloko/course-archive/internal/browser"
	"github.com/veranemoloko/course-archive/internal/capture"
	cfgpkg "github.com/veranemoloko/course-archive/internal/config"
	"github.com/veranemoloko/course-archive/internal/domain"
	"github.com/veranemoloko/course-archive/internal/pipeline"
	"github.com/veranemoloko/course-archive/internal/platform"
	"github.com/veranemoloko/course-archive/internal/platform/coursera"
	"github.com/veranemoloko/course-archive/internal/platform/edx"
	"github.com/veranemoloko/course-archive/internal/progress"
	repo "github.com/veranemoloko/course-archive/internal/repository"
	"github.com/veranemoloko/course-archive/internal/retry"
	"github.com/veranemoloko/course-archive/internal/session"
	"github.com/veranemoloko/course-archive/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := cfgpkg.Load(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger := cfgpkg.SetupLogger(cfg)
	runID := uuid.New()
	startedAt := time.Now()
	logger = logger.With("run_id", runID.String())

	registry := platform.NewRegistry(edx.Platform(), coursera.Platform())
	plat, err := registry.Lookup(cfg.CourseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v (supported: %v)\n", err, registry.Names())
		return 1
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = plat.Concurrency
	}

	if err := promptCredentials(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger.Debug("configuration loaded", "platform", plat.Name, "config", fmt.Sprintf("%+v", cfg.Redacted()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver := browser.NewRodDriver(0, logger)
	sess := session.NewManager(driver, browser.LaunchOptions{
		Headless: cfg.Headless,
		Bin:      cfg.BrowserBin,
	}, logger)
	if err := sess.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() {
		if err := sess.Stop(); err != nil {
			logger.Warn("browser shutdown failed", "error", err)
		}
	}()

	fs := storage.NewFileStorage(cfg.Output)
	format, err := domain.ParseFormat(cfg.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	capturer := capture.NewCapturer(fs, format, cfg.SaveTimeout, logger)

	downloader := plat.New(platform.Deps{
		CourseURL:   cfg.CourseURL,
		Credentials: platform.Credentials{User: cfg.User, Password: cfg.Password},
		Options: platform.Options{
			Delay:         cfg.DelayDuration(),
			IdleQuiet:     cfg.IdleQuiet,
			RenderTimeout: cfg.RenderTimeout,
			Headless:      cfg.Headless,
			BrowserBin:    cfg.BrowserBin,
		},
		Session:  sess,
		Driver:   driver,
		Capturer: capturer,
		Storage:  fs,
		Out:      os.Stdout,
		Logger:   logger,
	})

	tracker := progress.NewTracker()
	if cfg.StatusAddr != "" {
		srv := h.NewServer(cfg.StatusAddr, h.NewRouter(tracker, runID.String(), logger), logger)
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "status server: %v\n", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("status server shutdown failed", "error", err)
			}
		}()
	}

	p := pipeline.New(downloader, sess, pipeline.Config{
		Concurrency: cfg.Concurrency,
		Policy: retry.Policy{
			InitialInterval: cfg.BackoffInitial,
			MaxInterval:     cfg.BackoffMax,
			MaxRetries:      cfg.Retries,
		},
		Relogin: cfg.Relogin,
	}, tracker, os.Stdout, logger)

	outcome, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	m := repo.NewManifest(runID, plat.Name, cfg.CourseURL, startedAt, outcome.Tasks, outcome.Results, outcome.Failures)
	if err := saveManifest(ctx, fs.Path(repo.ManifestFile), m); err != nil {
		logger.Warn("manifest not written", "error", err)
	}

	if n := len(outcome.Failures); n > 0 {
		fmt.Printf("%d of %d pages failed:\n", n, len(outcome.Tasks))
		for _, f := range outcome.Failures {
			fmt.Printf("  %d %s: %v\n", f.Task.Index+1, f.Task.URL, f.Err)
		}
	}
	fmt.Println("Done.")
	return 0
}

func saveManifest(ctx context.Context, path string, m *repo.Manifest) error {
	store, err := repo.NewManifestStore(path)
	if err != nil {
		return err
	}
	if last := store.Last(); last != nil {
		slog.Debug("replacing previous manifest", "previous_run", last.RunID, "saved", last.Saved)
	}
	return store.Save(ctx, m)
}
