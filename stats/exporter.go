package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/withexxa/hn-whoshiring/models"
)

// WriteCSV writes the postings as a table with a header row
func WriteCSV(w io.Writer, rows []models.PostingRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(models.PostingColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		if err := writer.Write(row.Record()); err != nil {
			return fmt.Errorf("failed to write record %d: %w", row.CommentID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportCSV writes the postings to a CSV file at path
func ExportCSV(path string, rows []models.PostingRow) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := WriteCSV(file, rows); err != nil {
		return err
	}

	return file.Close()
}
