package scraper

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/withexxa/hn-whoshiring/models"
)

// Manifest records which threads have a complete comment archive
type Manifest interface {
	IsThreadArchived(threadID int) (bool, error)
	GetThreadByDir(dir string) (models.ArchivedThread, bool, error)
	MarkThreadArchived(thread models.ArchivedThread) error
}

// ArchiveResult describes what ArchiveThread did for one thread
type ArchiveResult struct {
	ThreadID     int
	Dir          string
	CommentCount int
	Skipped      bool
}

// Archiver persists threads and their comments under the output directory
type Archiver struct {
	fetcher   ItemFetcher
	manifest  Manifest
	outputDir string
	runID     string
	log       *logrus.Logger
}

// NewArchiver creates a new archiver; manifest may be nil
func NewArchiver(fetcher ItemFetcher, manifest Manifest, outputDir, runID string, log *logrus.Logger) *Archiver {
	return &Archiver{
		fetcher:   fetcher,
		manifest:  manifest,
		outputDir: outputDir,
		runID:     runID,
		log:       log,
	}
}

// ArchiveThread writes thread.json and comments.jsonl for a thread unless they already exist.
// comments.jsonl is only ever created complete: a failed comment fetch leaves no file behind.
func (a *Archiver) ArchiveThread(ctx context.Context, thread *models.Item) (ArchiveResult, error) {
	dir := ThreadDir(a.outputDir, thread)
	result := ArchiveResult{ThreadID: thread.ID, Dir: dir}

	logger := a.log.WithFields(logrus.Fields{
		"thread_id": thread.ID,
		"dir":       dir,
	})

	if err := os.MkdirAll(dir, 0755); err != nil {
		return result, fmt.Errorf("failed to create thread directory: %w", err)
	}

	a.checkCollision(thread.ID, dir, logger)

	threadPath := filepath.Join(dir, ThreadFile)
	exists, err := fileExists(threadPath)
	if err != nil {
		return result, err
	}
	if !exists {
		if err := writeThread(threadPath, thread); err != nil {
			return result, err
		}
		logger.Debug("Wrote thread record")
	}

	commentsPath := filepath.Join(dir, CommentsFile)
	exists, err = fileExists(commentsPath)
	if err != nil {
		return result, err
	}
	if exists {
		result.Skipped = true
		result.CommentCount = len(thread.Kids)
		logger.Debug("Comment archive already exists, skipping")
		return result, a.backfillManifest(thread.ID, dir, len(thread.Kids), logger)
	}

	if a.manifest != nil {
		if archived, err := a.manifest.IsThreadArchived(thread.ID); err == nil && archived {
			logger.Warn("Manifest lists thread as archived but comments file is missing, archiving again")
		}
	}

	comments, err := a.fetcher.FetchMany(ctx, thread.Kids)
	if err != nil {
		return result, fmt.Errorf("failed to fetch comments of thread %d: %w", thread.ID, err)
	}

	if err := WriteJSONLines(commentsPath, comments); err != nil {
		return result, fmt.Errorf("failed to write comment archive: %w", err)
	}
	result.CommentCount = len(comments)

	if a.manifest != nil {
		err := a.manifest.MarkThreadArchived(models.ArchivedThread{
			ThreadID:     thread.ID,
			Dir:          dir,
			CommentCount: len(comments),
			RunID:        a.runID,
		})
		if err != nil {
			return result, err
		}
	}

	logger.WithField("comments", len(comments)).Info("Archived thread comments")
	return result, nil
}

// checkCollision warns when another thread already owns the directory
func (a *Archiver) checkCollision(threadID int, dir string, logger *logrus.Entry) {
	if a.manifest == nil {
		return
	}
	owner, found, err := a.manifest.GetThreadByDir(dir)
	if err != nil {
		logger.WithError(err).Warn("Failed to look up directory owner")
		return
	}
	if found && owner.ThreadID != threadID {
		logger.WithField("owner_thread_id", owner.ThreadID).Warn("Thread directory already belongs to another thread")
	}
}

// backfillManifest records archives that predate the manifest
func (a *Archiver) backfillManifest(threadID int, dir string, count int, logger *logrus.Entry) error {
	if a.manifest == nil {
		return nil
	}
	archived, err := a.manifest.IsThreadArchived(threadID)
	if err != nil {
		return err
	}
	if archived {
		return nil
	}
	logger.Debug("Recording existing archive in manifest")
	return a.manifest.MarkThreadArchived(models.ArchivedThread{
		ThreadID:     threadID,
		Dir:          dir,
		CommentCount: count,
		RunID:        a.runID,
	})
}

func writeThread(path string, thread *models.Item) error {
	var buf bytes.Buffer
	enc := newEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(thread); err != nil {
		return fmt.Errorf("failed to encode thread %d: %w", thread.ID, err)
	}
	return WriteFileAtomic(path, func(w *bufio.Writer) error {
		_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
		return err
	})
}

// ReadComments reads a thread's comment archive
func ReadComments(dir string) ([]*models.Item, error) {
	return ReadJSONLines(filepath.Join(dir, CommentsFile))
}
