package scraper

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/withexxa/hn-whoshiring/models"
)

const (
	ThreadsFile  = "whoishiring_threads.jsonl"
	ThreadFile   = "thread.json"
	CommentsFile = "comments.jsonl"
)

// ThreadDir returns the output directory for a thread: {root}/{YYYY-MM-DD}/{title_with_underscores}
func ThreadDir(root string, thread *models.Item) string {
	date := thread.CreatedAt().Format("2006-01-02")
	return filepath.Join(root, date, sanitizeTitle(thread.Title))
}

// sanitizeTitle replaces spaces and path separators so the title stays one path element
func sanitizeTitle(title string) string {
	return strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(title)
}

// fileExists reports whether path exists
func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// WriteFileAtomic writes through a temp file in the same directory, so path
// either does not exist or holds everything that was written
func WriteFileAtomic(path string, write func(w *bufio.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// WriteJSONLines writes one JSON value per line
func WriteJSONLines(path string, items []*models.Item) error {
	return WriteFileAtomic(path, func(w *bufio.Writer) error {
		enc := newEncoder(w)
		for _, item := range items {
			if err := enc.Encode(item); err != nil {
				return fmt.Errorf("failed to encode item %d: %w", item.ID, err)
			}
		}
		return nil
	})
}

// newEncoder keeps HTML in comment text as the API sent it
func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// ReadJSONLines reads a file written by WriteJSONLines, in order
func ReadJSONLines(path string) ([]*models.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	items := make([]*models.Item, 0)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var item models.Item
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			return nil, fmt.Errorf("failed to decode line in %s: %w", path, err)
		}
		items = append(items, &item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return items, nil
}
