package config

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCourse = "https://learning.edx.org/course/course-v1:MITx+6.00.1x+2T2024/home"

// chdir moves into a fresh directory so that a stray .env is never picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := chdir(t)

	cfg, err := Load([]string{testCourse}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, testCourse, cfg.CourseURL)
	assert.Equal(t, "Archive", cfg.Output)
	assert.Equal(t, "pdf", cfg.Format)
	assert.Equal(t, 1, cfg.Delay)
	assert.Equal(t, 3, cfg.Retries)
	assert.Equal(t, 0, cfg.Concurrency)
	assert.True(t, cfg.Headless)
	assert.True(t, cfg.Relogin)
	assert.Equal(t, 5*time.Second, cfg.BackoffInitial)
	assert.Equal(t, 60*time.Second, cfg.BackoffMax)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.DirExists(t, filepath.Join(dir, "Archive"))
}

func TestLoad_Flags(t *testing.T) {
	dir := chdir(t)
	out := filepath.Join(dir, "out")

	cfg, err := Load([]string{
		"-u", "me@example.com",
		"--password", "secret",
		"-o", out,
		"-f", "png",
		"-d", "0",
		"-r", "5",
		"-c", "2",
		"--headless=false",
		"--debug",
		"--backoff-initial", "1s",
		"--backoff-max", "2s",
		testCourse,
	}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, "me@example.com", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, out, cfg.Output)
	assert.Equal(t, "png", cfg.Format)
	assert.Equal(t, 0, cfg.Delay)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.False(t, cfg.Headless)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Second, cfg.BackoffInitial)
	assert.Equal(t, 2*time.Second, cfg.BackoffMax)
}

func TestLoad_Precedence(t *testing.T) {
	dir := chdir(t)

	yamlPath := filepath.Join(dir, "archive.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(
		"course_url: "+testCourse+"\n"+
			"output: from-yaml\n"+
			"retries: 7\n"+
			"delay: 4\n"+
			"format: png\n"), 0o644))

	t.Setenv("ARCHIVE_CONFIG", yamlPath)
	t.Setenv("ARCHIVE_RETRIES", "9")
	t.Setenv("ARCHIVE_SAVE_TIMEOUT", "12s")
	t.Setenv("USER", "should-not-be-used")

	cfg, err := Load([]string{"-d", "2"}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, testCourse, cfg.CourseURL, "yaml")
	assert.Equal(t, "from-yaml", cfg.Output, "yaml")
	assert.Equal(t, "png", cfg.Format, "yaml")
	assert.Equal(t, 9, cfg.Retries, "env overrides yaml")
	assert.Equal(t, 12*time.Second, cfg.SaveTimeout, "env")
	assert.Equal(t, 2, cfg.Delay, "flag overrides yaml")
	assert.Empty(t, cfg.User)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(
		"ARCHIVE_COURSE_URL="+testCourse+"\nARCHIVE_CONCURRENCY=3\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("ARCHIVE_COURSE_URL")
		os.Unsetenv("ARCHIVE_CONCURRENCY")
	})

	cfg, err := Load(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, testCourse, cfg.CourseURL)
	assert.Equal(t, 3, cfg.Concurrency)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing url", nil, "CourseURL"},
		{"private url", []string{"http://127.0.0.1/course"}, "CourseURL"},
		{"bad format", []string{"-f", "gif", testCourse}, "Format"},
		{"negative retries", []string{"-r", "-1", testCourse}, "Retries"},
		{"backoff cap below initial", []string{"--backoff-initial", "10s", "--backoff-max", "1s", testCourse}, "BackoffMax"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t)
			_, err := Load(tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_Usage(t *testing.T) {
	chdir(t)

	var buf bytes.Buffer
	_, err := Load([]string{"-h"}, &buf)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, buf.String(), "Usage: course-archive")

	_, err = Load([]string{testCourse, "extra"}, &buf)
	assert.ErrorIs(t, err, ErrUsage)

	_, err = Load([]string{"--nope"}, &buf)
	assert.ErrorIs(t, err, ErrUsage)
}

func TestRedacted(t *testing.T) {
	cfg := Default()
	cfg.User = "me"
	cfg.Password = "pw"

	r := cfg.Redacted()
	assert.Equal(t, "<censored>", r.User)
	assert.Equal(t, "<censored>", r.Password)
	assert.Equal(t, "me", cfg.User)

	empty := Default().Redacted()
	assert.Empty(t, empty.Password)
}
