package extract

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/withexxa/hn-whoshiring/models"
	"github.com/withexxa/hn-whoshiring/scraper"
)

const CompletionsFile = "completions.jsonl"

// ProcessSummary counts what ProcessDirectory did
type ProcessSummary struct {
	Files       int
	Skipped     int
	Comments    int
	Completions int
	LLMErrors   int
	FileErrors  int
}

// Processor runs the LLM extraction over comment archives, one task per archive
type Processor struct {
	completer Completer
	workers   int
	log       *logrus.Logger
}

// NewProcessor creates a new processor; workers <= 0 starts one worker per archive
func NewProcessor(completer Completer, workers int, log *logrus.Logger) *Processor {
	return &Processor{
		completer: completer,
		workers:   workers,
		log:       log,
	}
}

// ProcessDirectory finds every comments.jsonl under root and writes a completions.jsonl
// next to each. Archives that already have completions are skipped.
func (p *Processor) ProcessDirectory(ctx context.Context, root string) (ProcessSummary, error) {
	var summary ProcessSummary

	paths, err := findFiles(root, scraper.CommentsFile)
	if err != nil {
		return summary, err
	}
	summary.Files = len(paths)
	if len(paths) == 0 {
		p.log.WithField("root", root).Warn("No comment archives found")
		return summary, nil
	}

	workers := p.workers
	if workers <= 0 || workers > len(paths) {
		workers = len(paths)
	}

	tasks := make(chan string)
	var (
		mutex sync.Mutex
		errs  []error
		wg    sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range tasks {
				fileSummary, err := p.processFile(ctx, path)

				mutex.Lock()
				summary.Skipped += fileSummary.Skipped
				summary.Comments += fileSummary.Comments
				summary.Completions += fileSummary.Completions
				summary.LLMErrors += fileSummary.LLMErrors
				if err != nil {
					summary.FileErrors++
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
				}
				mutex.Unlock()

				if err != nil {
					p.log.WithError(err).WithField("file", path).Error("Failed to process comment archive")
				}
			}
		}()
	}

	for _, path := range paths {
		select {
		case tasks <- path:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}

	p.log.WithFields(logrus.Fields{
		"files":       summary.Files,
		"skipped":     summary.Skipped,
		"comments":    summary.Comments,
		"completions": summary.Completions,
		"llm_errors":  summary.LLMErrors,
		"file_errors": summary.FileErrors,
		"workers":     workers,
	}).Info("LLM extraction finished")

	return summary, errors.Join(errs...)
}

// processFile sends every live comment of one archive to the model, in order
func (p *Processor) processFile(ctx context.Context, path string) (ProcessSummary, error) {
	var summary ProcessSummary
	dir := filepath.Dir(path)
	outPath := filepath.Join(dir, CompletionsFile)

	if _, err := os.Stat(outPath); err == nil {
		summary.Skipped = 1
		p.log.WithField("file", outPath).Debug("Completions already exist, skipping")
		return summary, nil
	}

	comments, err := scraper.ReadComments(dir)
	if err != nil {
		return summary, err
	}

	records := make([]models.CompletionRecord, 0, len(comments))
	for _, comment := range comments {
		if comment.Deleted || comment.Text == "" {
			continue
		}
		summary.Comments++

		text, err := CommentText(comment.Text)
		if err != nil {
			text = comment.Text
		}

		created := comment.CreatedAt()
		record := models.CompletionRecord{
			CommentID: comment.ID,
			Year:      created.Year(),
			Month:     int(created.Month()),
			Prompt:    UserMessage(created.Year(), int(created.Month()), text),
		}

		completion, err := p.completer.Complete(ctx, SystemPrompt, record.Prompt)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.LLMErrors++
			record.Error = err.Error()
			p.log.WithError(err).WithField("comment_id", comment.ID).Warn("LLM request failed")
		} else {
			summary.Completions++
			record.Completion = completion
		}
		records = append(records, record)
	}

	err = scraper.WriteFileAtomic(outPath, func(w *bufio.Writer) error {
		for _, record := range records {
			line, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("failed to encode completion for comment %d: %w", record.CommentID, err)
			}
			w.Write(line)
			w.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return summary, err
	}

	p.log.WithFields(logrus.Fields{
		"file":        outPath,
		"completions": summary.Completions,
	}).Info("Wrote completions")

	return summary, nil
}

// ReadCompletions reads a completions.jsonl file
func ReadCompletions(path string) ([]models.CompletionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records := make([]models.CompletionRecord, 0)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var record models.CompletionRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("failed to decode completion in %s: %w", path, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return records, nil
}

// FindCompletionFiles lists every completions.jsonl under root
func FindCompletionFiles(root string) ([]string, error) {
	return findFiles(root, CompletionsFile)
}

func findFiles(root, name string) ([]string, error) {
	paths := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return paths, nil
}
