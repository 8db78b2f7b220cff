package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/veranemoloko/course-archive/internal/domain"
)

// ManifestFile is the manifest name inside the output directory.
const ManifestFile = ".course-archive.json"

// Entry is the outcome of one page.
type Entry struct {
	Index    int               `json:"index"`
	Name     string            `json:"name"`
	URL      string            `json:"url"`
	Status   domain.TaskStatus `json:"status"`
	File     string            `json:"file,omitempty"`
	Attempts int               `json:"attempts,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Manifest lists what a run saved and what it gave up on.
type Manifest struct {
	RunID      uuid.UUID `json:"run_id"`
	Platform   string    `json:"platform"`
	CourseURL  string    `json:"course_url"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Saved      int       `json:"saved"`
	Failed     int       `json:"failed"`
	Entries    []Entry   `json:"entries"`
}

// NewManifest builds a manifest ordered by task index. Tasks with neither a
// result nor a failure are recorded as pending.
func NewManifest(runID uuid.UUID, platform, courseURL string, startedAt time.Time,
	tasks []domain.DownloadTask, results []domain.DownloadResult, failures []domain.TaskFailure) *Manifest {

	entries := make(map[string]Entry, len(tasks))
	for _, t := range tasks {
		entries[t.ID] = Entry{Index: t.Index, Name: t.Name, URL: t.URL, Status: domain.TaskStatusPending}
	}
	for _, r := range results {
		e := entries[r.Task.ID]
		e.Index, e.Name, e.URL = r.Task.Index, r.Task.Name, r.Task.URL
		e.Status = domain.TaskStatusCompleted
		e.File = filepath.Base(r.Path)
		entries[r.Task.ID] = e
	}
	for _, f := range failures {
		e := entries[f.Task.ID]
		e.Index, e.Name, e.URL = f.Task.Index, f.Task.Name, f.Task.URL
		e.Status = domain.TaskStatusFailed
		e.Attempts = f.Attempts
		if f.Err != nil {
			e.Error = f.Err.Error()
		}
		entries[f.Task.ID] = e
	}

	m := &Manifest{
		RunID:      runID,
		Platform:   platform,
		CourseURL:  courseURL,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Saved:      len(results),
		Failed:     len(failures),
		Entries:    make([]Entry, 0, len(entries)),
	}
	for _, e := range entries {
		m.Entries = append(m.Entries, e)
	}
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].Index < m.Entries[j].Index })
	return m
}

// ManifestStore keeps the manifest of the latest run in a JSON file.
type ManifestStore struct {
	mu   sync.RWMutex
	file string
	last *Manifest
}

// NewManifestStore creates a ManifestStore and loads the previous manifest
// if the file exists.
func NewManifestStore(filePath string) (*ManifestStore, error) {
	store := &ManifestStore{
		file: filepath.Clean(filePath),
	}

	if err := store.restore(); err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	return store, nil
}

func (s *ManifestStore) restore() error {
	data, err := os.ReadFile(s.file)
	if os.IsNotExist(err) {
		slog.Debug("no previous manifest", "file_path", s.file)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest file: %w", err)
	}

	if len(data) == 0 {
		slog.Warn("manifest file is empty", "file_path", s.file)
		return nil
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to unmarshal manifest file: %w", err)
	}
	s.last = &m

	slog.Debug("previous manifest loaded", "run_id", m.RunID, "saved", m.Saved, "failed", m.Failed)
	return nil
}

// Last returns the most recently saved or restored manifest, or nil.
func (s *ManifestStore) Last() *Manifest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Save writes m through a temporary file and makes it the last manifest.
func (s *ManifestStore) Save(ctx context.Context, m *Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tempFile := s.file + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err := os.Rename(tempFile, s.file); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	s.last = m

	slog.Debug("manifest saved", "entries", len(m.Entries), "file_path", s.file)
	return nil
}
