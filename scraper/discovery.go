package scraper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/withexxa/hn-whoshiring/models"
)

// ItemFetcher is the subset of the Hacker News client the scraper needs
type ItemFetcher interface {
	FetchUser(ctx context.Context, name string) (*models.User, error)
	FetchMany(ctx context.Context, ids []int) ([]*models.Item, error)
}

// Discovery lists the hiring threads submitted by a set of accounts
type Discovery struct {
	fetcher    ItemFetcher
	classifier Classifier
	accounts   []string
	outputDir  string
	log        *logrus.Logger
}

// NewDiscovery creates a new thread discovery
func NewDiscovery(fetcher ItemFetcher, classifier Classifier, accounts []string, outputDir string, log *logrus.Logger) *Discovery {
	if classifier == nil {
		classifier = TitleClassifier{}
	}
	return &Discovery{
		fetcher:    fetcher,
		classifier: classifier,
		accounts:   accounts,
		outputDir:  outputDir,
		log:        log,
	}
}

// Discover fetches every submitted thread, records them all in whoishiring_threads.jsonl
// and returns the live job-offer threads in submission order
func (d *Discovery) Discover(ctx context.Context) ([]*models.Item, error) {
	ids := make([]int, 0)
	for _, account := range d.accounts {
		user, err := d.fetcher.FetchUser(ctx, account)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch submissions of %s: %w", account, err)
		}
		ids = append(ids, user.Submitted...)
	}

	threads, err := d.fetcher.FetchMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch threads: %w", err)
	}

	if err := os.MkdirAll(d.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := WriteJSONLines(filepath.Join(d.outputDir, ThreadsFile), threads); err != nil {
		return nil, fmt.Errorf("failed to write thread list: %w", err)
	}

	qualifying := make([]*models.Item, 0, len(threads))
	for _, thread := range threads {
		if d.Qualifies(thread) {
			qualifying = append(qualifying, thread)
		}
	}

	d.log.WithFields(logrus.Fields{
		"accounts":   d.accounts,
		"submitted":  len(ids),
		"qualifying": len(qualifying),
	}).Info("Discovered hiring threads")

	return qualifying, nil
}

// Qualifies reports whether a thread is live, has comments and is a job-offer thread
func (d *Discovery) Qualifies(thread *models.Item) bool {
	if thread == nil || thread.Deleted || thread.Dead || len(thread.Kids) == 0 {
		return false
	}
	return d.classifier.Classify(thread.Title) == JobOfferThread
}

// ThreadIDs returns the ids of the given threads, in order
func ThreadIDs(threads []*models.Item) []int {
	ids := make([]int, len(threads))
	for i, t := range threads {
		ids[i] = t.ID
	}
	return ids
}
