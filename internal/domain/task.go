package domain

// DownloadTask describes one page to capture. Tasks are created by the
// discovery phase and never mutated afterwards.
type DownloadTask struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index"`
	URL   string `json:"url"`
}

// DownloadResult is produced by a successful download attempt.
type DownloadResult struct {
	Task     DownloadTask `json:"task"`
	BaseName string       `json:"base_name"`
	Path     string       `json:"path,omitempty"`
}

// TaskFailure records a task that exhausted its retries.
type TaskFailure struct {
	Task     DownloadTask `json:"task"`
	Attempts int          `json:"attempts"`
	Err      error        `json:"-"`
}
