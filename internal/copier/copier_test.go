package copier

import (
	"bytes"
	"errors"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/agentx-labs/stackforge/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRandom(t *testing.T, path string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	rand.New(rand.NewSource(int64(size))).Read(data)
	require.NoError(t, os.WriteFile(path, data, 0o640))
	return data
}

func TestCopyThresholdBoundary(t *testing.T) {
	const threshold = 4096

	tests := []struct {
		name     string
		size     int
		strategy Strategy
	}{
		{"below threshold", threshold - 1, Buffered},
		{"at threshold", threshold, Buffered},
		{"above threshold", threshold + 1, Streamed},
		{"several chunks", 3*ChunkSize + 17, Streamed},
		{"empty", 0, Buffered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "src.bin")
			dst := filepath.Join(dir, "dst.bin")
			want := writeRandom(t, src, tt.size)

			stats, err := Copy(src, dst, threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, stats.Strategy)
			assert.Equal(t, int64(tt.size), stats.Bytes)

			got, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(want, got), "content mismatch")
		})
	}
}

func TestCopyPreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no unix permission bits")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.Chmod(src, 0o755))

	dst := filepath.Join(dir, "copy.sh")
	_, err := Copy(src, dst, DefaultThreshold)
	require.NoError(t, err)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCopyRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeRandom(t, src, 10)
	require.NoError(t, os.WriteFile(dst, []byte("keep me"), 0o644))

	_, err := Copy(src, dst, DefaultThreshold)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrExist))
	assert.True(t, errors.Is(err, errs.ErrIO))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(got))
	assertOnlyEntries(t, dir, "dst", "src")
}

func TestCopyMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := Copy(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"), DefaultThreshold)
	require.Error(t, err)
	assertOnlyEntries(t, dir)
}

func TestCopyRejectsDirectorySource(t *testing.T) {
	dir := t.TempDir()
	_, err := Copy(dir, filepath.Join(dir, "dst"), DefaultThreshold)
	require.Error(t, err)
	assertOnlyEntries(t, dir)
}

func TestCopyMissingDestinationDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeRandom(t, src, 10)

	_, err := Copy(src, filepath.Join(dir, "missing", "dst"), DefaultThreshold)
	require.Error(t, err)
	assertOnlyEntries(t, dir, "src")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, ".eslintrc.json")

	require.NoError(t, WriteFile(dst, []byte(`{"root": true}`), 0o644))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, `{"root": true}`, string(got))

	err = WriteFile(dst, []byte("other"), 0o644)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrExist))
	assertOnlyEntries(t, dir, ".eslintrc.json")
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "buffered", Buffered.String())
	assert.Equal(t, "streamed", Streamed.String())
}

// assertOnlyEntries fails if dir holds anything besides names, which is how
// leaked temp files show up.
func assertOnlyEntries(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if len(names) == 0 {
		assert.Empty(t, got)
		return
	}
	assert.ElementsMatch(t, names, got)
}
