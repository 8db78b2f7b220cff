package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veranemoloko/course-archive/internal/domain"
)

func TestNewManifest(t *testing.T) {
	tasks := []domain.DownloadTask{
		{ID: "c", Name: "c", Index: 2, URL: "https://x/c"},
		{ID: "a", Name: "a", Index: 0, URL: "https://x/a"},
		{ID: "b", Name: "b", Index: 1, URL: "https://x/b"},
	}
	results := []domain.DownloadResult{{Task: tasks[1], BaseName: "1 - Intro", Path: "/out/1 - Intro.pdf"}}
	failures := []domain.TaskFailure{{Task: tasks[0], Attempts: 4, Err: errors.New("save timeout")}}

	m := NewManifest(uuid.New(), "edX", "https://x", time.Now(), tasks, results, failures)

	require.Len(t, m.Entries, 3)
	assert.Equal(t, 1, m.Saved)
	assert.Equal(t, 1, m.Failed)

	assert.Equal(t, 0, m.Entries[0].Index)
	assert.Equal(t, domain.TaskStatusCompleted, m.Entries[0].Status)
	assert.Equal(t, "1 - Intro.pdf", m.Entries[0].File)

	assert.Equal(t, domain.TaskStatusPending, m.Entries[1].Status)

	assert.Equal(t, domain.TaskStatusFailed, m.Entries[2].Status)
	assert.Equal(t, 4, m.Entries[2].Attempts)
	assert.Equal(t, "save timeout", m.Entries[2].Error)
}

func TestManifestStore_SaveAndRestore(t *testing.T) {
	file := filepath.Join(t.TempDir(), ManifestFile)

	store, err := NewManifestStore(file)
	require.NoError(t, err)
	assert.Nil(t, store.Last())

	m := NewManifest(uuid.New(), "Coursera", "https://x", time.Now(),
		[]domain.DownloadTask{{ID: "a", Name: "a", URL: "https://x/a"}}, nil, nil)
	require.NoError(t, store.Save(context.Background(), m))
	assert.Same(t, m, store.Last())
	assert.NoFileExists(t, file+".tmp")

	reopened, err := NewManifestStore(file)
	require.NoError(t, err)
	require.NotNil(t, reopened.Last())
	assert.Equal(t, m.RunID, reopened.Last().RunID)
	assert.Len(t, reopened.Last().Entries, 1)
}

func TestManifestStore_Corrupt(t *testing.T) {
	file := filepath.Join(t.TempDir(), ManifestFile)
	require.NoError(t, os.WriteFile(file, []byte("{not json"), 0o644))

	_, err := NewManifestStore(file)
	assert.Error(t, err)
}

func TestManifestStore_CancelledContext(t *testing.T) {
	store, err := NewManifestStore(filepath.Join(t.TempDir(), ManifestFile))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Save(ctx, &Manifest{}), context.Canceled)
}
