package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RunSummary counts what one pipeline run did
type RunSummary struct {
	RunID      string
	Discovered int
	Archived   int
	Skipped    int
	Failed     int
}

// Pipeline discovers hiring threads and archives them one after another
type Pipeline struct {
	fetcher    ItemFetcher
	manifest   Manifest
	classifier Classifier
	accounts   []string
	outputDir  string
	log        *logrus.Logger
}

// NewPipeline creates a new fetch pipeline
func NewPipeline(fetcher ItemFetcher, manifest Manifest, classifier Classifier, accounts []string, outputDir string, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		manifest:   manifest,
		classifier: classifier,
		accounts:   accounts,
		outputDir:  outputDir,
		log:        log,
	}
}

// Run archives every qualifying thread. A thread that fails is logged and the run moves on;
// the returned error joins every thread failure.
func (p *Pipeline) Run(ctx context.Context) (RunSummary, error) {
	summary := RunSummary{RunID: uuid.NewString()}
	logger := p.log.WithField("run_id", summary.RunID)

	discovery := NewDiscovery(p.fetcher, p.classifier, p.accounts, p.outputDir, p.log)
	threads, err := discovery.Discover(ctx)
	if err != nil {
		return summary, err
	}
	summary.Discovered = len(threads)

	archiver := NewArchiver(p.fetcher, p.manifest, p.outputDir, summary.RunID, p.log)

	var errs []error
	for _, thread := range threads {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := archiver.ArchiveThread(ctx, thread)
		if err != nil {
			summary.Failed++
			errs = append(errs, fmt.Errorf("thread %d: %w", thread.ID, err))
			logger.WithError(err).WithField("thread_id", thread.ID).Error("Failed to archive thread")
			continue
		}
		if result.Skipped {
			summary.Skipped++
		} else {
			summary.Archived++
		}
	}

	logger.WithFields(logrus.Fields{
		"discovered": summary.Discovered,
		"archived":   summary.Archived,
		"skipped":    summary.Skipped,
		"failed":     summary.Failed,
	}).Info("Fetch run finished")

	return summary, errors.Join(errs...)
}
