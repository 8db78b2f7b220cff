package domain

// Phase is one step of the archive run.
type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseLogin    Phase = "login"
	PhaseDiscover Phase = "discover"
	PhaseDownload Phase = "download"
	PhaseReport   Phase = "report"
	PhaseDone     Phase = "done"
	PhaseFatal    Phase = "fatal"
)

// TaskStatus represents the current state of a single download task.
type TaskStatus string

const (
	TaskStatusPending     TaskStatus = "pending"
	TaskStatusDownloading TaskStatus = "downloading"
	TaskStatusCompleted   TaskStatus = "completed"
	TaskStatusFailed      TaskStatus = "failed"
)
