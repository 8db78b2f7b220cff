package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_archive_tasks_discovered_total",
		Help: "Total number of pages discovered for download",
	})

	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_archive_tasks_completed_total",
		Help: "Total number of pages saved",
	})

	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_archive_tasks_failed_total",
		Help: "Total number of pages that could not be saved after all retries",
	})

	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_archive_attempts_total",
		Help: "Total number of attempts per phase",
	}, []string{"phase"})

	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "course_archive_retries_total",
		Help: "Total number of retries per phase",
	}, []string{"phase"})

	TasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "course_archive_tasks_in_flight",
		Help: "Number of page downloads currently holding a concurrency slot",
	})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "course_archive_download_duration_seconds",
		Help:    "Time to navigate, render and save one page",
		Buckets: prometheus.DefBuckets,
	})

	BytesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_archive_bytes_saved_total",
		Help: "Total bytes written to the output directory",
	})

	BrowserRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "course_archive_browser_restarts_total",
		Help: "Total number of browser restarts after an unexpected disconnect",
	})
)
