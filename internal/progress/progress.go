// Package progress keeps the live state of a run for status reporting.
package progress

import (
	"sync"
	"time"

	"github.com/veranemoloko/course-archive/internal/domain"
)

// Failure describes a task that gave up.
type Failure struct {
	TaskID   string `json:"task_id"`
	Name     string `json:"name"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// Snapshot is a point in time copy of the run state.
type Snapshot struct {
	Phase       domain.Phase `json:"phase"`
	StartedAt   time.Time    `json:"started_at"`
	Total       int          `json:"total"`
	Pending     int          `json:"pending"`
	Downloading int          `json:"downloading"`
	Completed   int          `json:"completed"`
	Failed      int          `json:"failed"`
	Failures    []Failure    `json:"failures,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// TaskState is the status of one task.
type TaskState struct {
	Index  int               `json:"index"`
	Name   string            `json:"name"`
	URL    string            `json:"url"`
	Status domain.TaskStatus `json:"status"`
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	phase     domain.Phase
	startedAt time.Time
	tasks     []domain.DownloadTask
	status    map[string]domain.TaskStatus
	failures  []Failure
	fatal     string
}

func NewTracker() *Tracker {
	return &Tracker{
		phase:     domain.PhaseStart,
		startedAt: time.Now(),
		status:    make(map[string]domain.TaskStatus),
	}
}

func (t *Tracker) SetPhase(p domain.Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = p
}

func (t *Tracker) Phase() domain.Phase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.phase
}

// SetTasks replaces the task list, marking every task pending.
func (t *Tracker) SetTasks(tasks []domain.DownloadTask) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tasks = append([]domain.DownloadTask(nil), tasks...)
	t.status = make(map[string]domain.TaskStatus, len(tasks))
	t.failures = nil
	for _, task := range tasks {
		t.status[task.ID] = domain.TaskStatusPending
	}
}

func (t *Tracker) SetStatus(taskID string, status domain.TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.status[taskID]; ok {
		t.status[taskID] = status
	}
}

// Fail marks the task failed and keeps the reason.
func (t *Tracker) Fail(f domain.TaskFailure) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.status[f.Task.ID]; !ok {
		return
	}
	t.status[f.Task.ID] = domain.TaskStatusFailed
	failure := Failure{TaskID: f.Task.ID, Name: f.Task.Name, Attempts: f.Attempts}
	if f.Err != nil {
		failure.Error = f.Err.Error()
	}
	t.failures = append(t.failures, failure)
}

// Abort records the fatal error and moves to the fatal phase.
func (t *Tracker) Abort(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = domain.PhaseFatal
	if err != nil {
		t.fatal = err.Error()
	}
}

// Tasks lists every task in discovery order.
func (t *Tracker) Tasks() []TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]TaskState, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, t.state(task))
	}
	return out
}

// Task returns the task with the given index.
func (t *Tracker) Task(index int) (TaskState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, task := range t.tasks {
		if task.Index == index {
			return t.state(task), true
		}
	}
	return TaskState{}, false
}

func (t *Tracker) state(task domain.DownloadTask) TaskState {
	return TaskState{Index: task.Index, Name: task.Name, URL: task.URL, Status: t.status[task.ID]}
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		Phase:     t.phase,
		StartedAt: t.startedAt,
		Total:     len(t.status),
		Error:     t.fatal,
	}
	for _, st := range t.status {
		switch st {
		case domain.TaskStatusPending:
			s.Pending++
		case domain.TaskStatusDownloading:
			s.Downloading++
		case domain.TaskStatusCompleted:
			s.Completed++
		case domain.TaskStatusFailed:
			s.Failed++
		}
	}
	if len(t.failures) > 0 {
		s.Failures = append([]Failure(nil), t.failures...)
	}
	return s
}
