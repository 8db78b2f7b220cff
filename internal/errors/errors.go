package errors

import (
	"errors"
	"fmt"
)

var (
	ErrLaunch        = errors.New("browser failed to start")
	ErrAuth          = errors.New("login failed")
	ErrDiscovery     = errors.New("task discovery failed")
	ErrRenderTimeout = errors.New("render timeout")
	ErrSaveTimeout   = errors.New("save timeout")
	ErrDisconnected  = errors.New("browser disconnected")
	ErrSessionClosed = errors.New("browser session is not running")
	ErrNoPlatform    = errors.New("no downloader for course url")
	ErrReport        = errors.New("report failed")
)

// PhaseError is returned when a pipeline phase gives up after retrying.
type PhaseError struct {
	Phase    string
	Attempts int
	Err      error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Phase, e.Attempts, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Retryable reports whether err may succeed when the owning phase runs again.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrLaunch) && !errors.Is(err, ErrNoPlatform)
}
