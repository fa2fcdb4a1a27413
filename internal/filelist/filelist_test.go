package filelist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestParse_DirectPathsAndGlobs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.root"))
	touch(t, filepath.Join(dir, "b.root"))
	touch(t, filepath.Join(dir, "c.h5"))

	files, err := Parse(context.Background(), []string{
		filepath.Join(dir, "c.h5"),
		filepath.Join(dir, "*.root"),
	}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "c.h5"),
		filepath.Join(dir, "a.root"),
		filepath.Join(dir, "b.root"),
	}, files)
}

func TestParse_SkipsMissingDirectPath(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.root"))

	files, err := Parse(context.Background(), []string{
		filepath.Join(dir, "missing.root"),
		filepath.Join(dir, "a.root"),
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.root")}, files)
}

func TestParse_SourceList(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "files.txt")
	content := "/data/run1.root\n\n  /data/run2.root  \n"
	require.NoError(t, os.WriteFile(listPath, []byte(content), 0o644))

	files, err := Parse(context.Background(), []string{listPath}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/run1.root", "/data/run2.root"}, files)
}

func TestParse_SourceListRequiresSingleFile(t *testing.T) {
	_, err := Parse(context.Background(), []string{"a.txt", "b.txt"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func makeFiles(n int) []string {
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("file_%02d.root", i)
	}
	return files
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name         string
		numFiles     int
		maxArraySize int
		filesPerTask int
		wantChunks   int
		wantGroups   []int
	}{
		{
			name:         "single chunk of grouped files",
			numFiles:     9,
			maxArraySize: 99,
			filesPerTask: 3,
			wantChunks:   1,
			wantGroups:   []int{3},
		},
		{
			name:         "split across chunks at max array size",
			numFiles:     50,
			maxArraySize: 10,
			filesPerTask: 1,
			wantChunks:   5,
			wantGroups:   []int{10, 10, 10, 10, 10},
		},
		{
			name:         "short final group",
			numFiles:     7,
			maxArraySize: 99,
			filesPerTask: 3,
			wantChunks:   1,
			wantGroups:   []int{3},
		},
		{
			name:         "guards below one",
			numFiles:     4,
			maxArraySize: 0,
			filesPerTask: 0,
			wantChunks:   4,
			wantGroups:   []int{1, 1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := makeFiles(tt.numFiles)
			chunks := Partition(files, tt.maxArraySize, tt.filesPerTask)

			require.Len(t, chunks, tt.wantChunks)
			for i, want := range tt.wantGroups {
				assert.Len(t, chunks[i], want, "chunk %d group count", i)
			}

			// Flattening must reproduce the input order exactly.
			var flat []string
			total := 0
			for _, c := range chunks {
				total += c.Files()
				for _, group := range c {
					flat = append(flat, group...)
				}
			}
			assert.Equal(t, files, flat)
			assert.Equal(t, tt.numFiles, total)
		})
	}
}

func TestPartition_ShortFinalGroup(t *testing.T) {
	chunks := Partition(makeFiles(7), 99, 3)
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0], 3)
	assert.Len(t, chunks[0][2], 1)
}
