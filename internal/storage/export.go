package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/abatilo/taskflow/internal/task"
)

const markdownExt = ".md"

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slug converts a title to a safe file name fragment.
// "Write Q3 report!" -> "write-q3-report"
func Slug(title string) string {
	result := nonAlnum.ReplaceAllString(strings.ToLower(title), "-")
	result = strings.Trim(result, "-")
	if len(result) > 40 {
		result = strings.TrimRight(result[:40], "-")
	}
	return result
}

// ExportFileName returns the markdown file name for a task.
func ExportFileName(t *task.Task, shortID string) string {
	slug := Slug(t.Title)
	if slug == "" {
		return shortID + markdownExt
	}
	return shortID + "-" + slug + markdownExt
}

// ExportMarkdown writes one markdown file per task into dir and returns the paths written.
func ExportMarkdown(dir string, tasks []task.Task) ([]string, error) {
	//nolint:gosec // G301: 0755 is appropriate for user-accessible export directory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	paths := make([]string, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		data, err := SerializeMarkdown(t)
		if err != nil {
			return paths, fmt.Errorf("serialize %s: %w", t.ID, err)
		}
		path := filepath.Join(dir, ExportFileName(t, task.ShortID(t.ID, ids)))
		if err := atomicWriteFile(path, data, 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ImportMarkdown parses every markdown file in dir. Unparseable files are
// reported by name in the returned error map and skipped.
func ImportMarkdown(dir string) ([]task.Task, map[string]error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var tasks []task.Task
	failed := make(map[string]error)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), markdownExt) {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			failed[entry.Name()] = err
			continue
		}
		t, err := ParseMarkdown(content)
		if err != nil {
			failed[entry.Name()] = err
			continue
		}
		tasks = append(tasks, *t)
	}
	return tasks, failed, nil
}
