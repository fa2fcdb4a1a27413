// Package filelist parses input file specifications and partitions the
// resulting file lists into scheduler-sized chunks.
//
// Input files arrive either as direct paths and glob patterns, or as a
// source-list text file holding one path per line. Partitioning is a
// two-level split: files are grouped into fixed-size task groups, and
// groups are batched into chunks bounded by the scheduler's maximum array
// size. Flattening the chunks reproduces the input order exactly.
package filelist

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/DeepLearnPhysics/spine-prod/internal/ctxlog"
)

// Parse expands the given file inputs into a flat list of paths.
//
// With fromList set, inputs must be exactly one text file containing one
// path per line; blank lines are skipped and paths are not checked for
// existence (the producing step owns them). Otherwise each input is taken
// as a direct path or, when it contains glob metacharacters, expanded with
// filepath.Glob. Direct paths that do not exist are skipped with a warning.
func Parse(ctx context.Context, inputs []string, fromList bool) ([]string, error) {
	log := ctxlog.FromContext(ctx)

	if fromList {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("source list accepts exactly one text file, got %d", len(inputs))
		}
		return readSourceList(inputs[0])
	}

	var files []string
	for _, item := range inputs {
		if strings.ContainsAny(item, "*?") {
			matches, err := filepath.Glob(item)
			if err != nil {
				return nil, fmt.Errorf("bad glob pattern %q: %w", item, err)
			}
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(item); err != nil {
			log.Warn("input file not found, skipping", "file", item)
			continue
		}
		files = append(files, item)
	}
	return files, nil
}

func readSourceList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source list: %w", err)
	}
	defer f.Close()

	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			files = append(files, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source list: %w", err)
	}
	return files, nil
}

// Chunk is one scheduler array submission: an ordered list of task groups,
// each group holding the files processed by a single array task.
type Chunk [][]string

// Files returns the total number of files across all groups in the chunk.
func (c Chunk) Files() int {
	n := 0
	for _, group := range c {
		n += len(group)
	}
	return n
}

// Partition splits files into chunks of task groups.
//
// Files are first grouped into consecutive runs of filesPerTask (the final
// group may be shorter), then the groups are batched into chunks of at most
// maxArraySize groups. No reordering or deduplication occurs: flattening
// the result reproduces files exactly.
func Partition(files []string, maxArraySize, filesPerTask int) []Chunk {
	if filesPerTask < 1 {
		filesPerTask = 1
	}
	if maxArraySize < 1 {
		maxArraySize = 1
	}

	var groups [][]string
	for i := 0; i < len(files); i += filesPerTask {
		end := i + filesPerTask
		if end > len(files) {
			end = len(files)
		}
		groups = append(groups, files[i:end])
	}

	var chunks []Chunk
	for i := 0; i < len(groups); i += maxArraySize {
		end := i + maxArraySize
		if end > len(groups) {
			end = len(groups)
		}
		chunks = append(chunks, Chunk(groups[i:end]))
	}
	return chunks
}
