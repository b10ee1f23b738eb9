package stats

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/withexxa/hn-whoshiring/extract"
	"github.com/withexxa/hn-whoshiring/models"
)

// PostingStore persists flattened postings
type PostingStore interface {
	SavePostings(rows []models.PostingRow) error
	GetPostings() ([]models.PostingRow, error)
}

// LoadSummary counts the completion records read by Load
type LoadSummary struct {
	Files   int
	Valid   int
	Invalid int
}

// Analyzer turns LLM completions into postings and keeps statistics about them
type Analyzer struct {
	store     PostingStore
	opts      Options
	stats     models.Statistics
	startTime time.Time
	log       *logrus.Logger
	mutex     sync.RWMutex
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(store PostingStore, opts Options, log *logrus.Logger) *Analyzer {
	return &Analyzer{
		store: store,
		opts:  opts,
		stats: models.Statistics{
			Monthly:     make([]models.MonthlyStats, 0),
			Yearly:      make(map[int]models.YearlyStats),
			LastUpdated: time.Now(),
		},
		startTime: time.Now(),
		log:       log,
	}
}

// Load reads every completions.jsonl under root, repairs and parses each completion,
// saves the valid postings and refreshes the statistics. Unparseable completions are
// counted as invalid and skipped.
func (a *Analyzer) Load(ctx context.Context, root string) ([]models.PostingRow, LoadSummary, error) {
	var summary LoadSummary

	paths, err := extract.FindCompletionFiles(root)
	if err != nil {
		return nil, summary, err
	}
	summary.Files = len(paths)

	rows := make([]models.PostingRow, 0)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, summary, err
		}

		records, err := extract.ReadCompletions(path)
		if err != nil {
			return nil, summary, err
		}

		for _, record := range records {
			row, err := a.parseRecord(record)
			if err != nil {
				summary.Invalid++
				a.log.WithError(err).WithField("file", path).Debug("Invalid completion")
				continue
			}
			summary.Valid++
			rows = append(rows, row)
		}
	}

	if a.store != nil && len(rows) > 0 {
		if err := a.store.SavePostings(rows); err != nil {
			return nil, summary, err
		}
	}

	a.update(rows, summary.Invalid)

	a.log.WithFields(logrus.Fields{
		"files":   summary.Files,
		"valid":   summary.Valid,
		"invalid": summary.Invalid,
	}).Info("Loaded completions")

	return rows, summary, nil
}

// Refresh recomputes the statistics from the posting store
func (a *Analyzer) Refresh() error {
	if a.store == nil {
		return errors.New("analyzer has no posting store")
	}

	rows, err := a.store.GetPostings()
	if err != nil {
		return err
	}

	a.mutex.RLock()
	invalid := a.stats.InvalidRecords
	a.mutex.RUnlock()

	a.update(rows, invalid)
	return nil
}

func (a *Analyzer) parseRecord(record models.CompletionRecord) (models.PostingRow, error) {
	if record.Error != "" {
		return models.PostingRow{}, &extract.ParseError{CommentID: record.CommentID, Err: errors.New(record.Error)}
	}

	year, month := record.Year, record.Month
	if year == 0 || month == 0 {
		if y, m, ok := extract.ParseYearMonth(record.Prompt); ok {
			year, month = y, m
		}
	}

	posting, err := extract.ParsePosting(record.CommentID, extract.Repair(record.Completion))
	if err != nil {
		return models.PostingRow{}, err
	}

	return posting.Row(record.CommentID, year, month), nil
}

func (a *Analyzer) update(rows []models.PostingRow, invalid int) {
	stats := Compute(rows, a.opts)
	stats.InvalidRecords = invalid

	a.mutex.Lock()
	a.stats = stats
	a.mutex.Unlock()

	a.logStatistics()
}

// logStatistics logs the current statistics
func (a *Analyzer) logStatistics() {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	a.log.WithFields(logrus.Fields{
		"valid_records":   a.stats.ValidRecords,
		"invalid_records": a.stats.InvalidRecords,
		"offers":          a.stats.TotalOffers,
		"demands":         a.stats.TotalDemands,
		"months":          len(a.stats.Monthly),
		"years":           len(a.stats.Yearly),
		"running_since":   time.Since(a.startTime).String(),
	}).Info("Statistics updated")
}

// GetStatistics returns a copy of the current statistics
func (a *Analyzer) GetStatistics() models.Statistics {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.stats
}
