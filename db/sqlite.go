package db

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/withexxa/hn-whoshiring/models"
)

// Database stores the archive manifest and the flattened job postings
type Database struct {
	db    *sql.DB
	mutex sync.RWMutex
	log   *logrus.Logger
}

// NewDatabase creates a new SQLite database connection
func NewDatabase(dbPath string, log *logrus.Logger) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:  db,
		log: log,
	}

	if err := database.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.db.Close()
}

// initTables creates the necessary tables if they don't exist
func (d *Database) initTables() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	query := `
	CREATE TABLE IF NOT EXISTS archived_threads (
		thread_id INTEGER PRIMARY KEY,
		dir TEXT NOT NULL,
		comment_count INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		archived_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_archived_threads_dir ON archived_threads(dir);

	CREATE TABLE IF NOT EXISTS postings (
		comment_id INTEGER PRIMARY KEY,
		comment_status TEXT NOT NULL,
		remote TEXT,
		visa_sponsoring BOOLEAN NOT NULL,
		states TEXT,
		countries TEXT,
		continents TEXT,
		cities TEXT,
		tech_stack TEXT,
		job_title TEXT,
		job_type TEXT,
		seniority_level TEXT,
		compensation_min REAL,
		compensation_max REAL,
		perks TEXT,
		hiring_company TEXT,
		company_size TEXT,
		fundraising_round TEXT,
		fundraising_amount REAL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_postings_year_month ON postings(year, month);
	`

	_, err := d.db.Exec(query)
	return err
}

// IsThreadArchived reports whether the manifest has an entry for the thread
func (d *Database) IsThreadArchived(threadID int) (bool, error) {
	_, found, err := d.GetArchivedThread(threadID)
	return found, err
}

// GetArchivedThread returns the manifest entry for a thread
func (d *Database) GetArchivedThread(threadID int) (models.ArchivedThread, bool, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var thread models.ArchivedThread
	err := d.db.QueryRow(`
	SELECT thread_id, dir, comment_count, run_id, archived_at
	FROM archived_threads
	WHERE thread_id = ?
	`, threadID).Scan(&thread.ThreadID, &thread.Dir, &thread.CommentCount, &thread.RunID, &thread.ArchivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ArchivedThread{}, false, nil
	}
	if err != nil {
		return models.ArchivedThread{}, false, fmt.Errorf("failed to query archived thread %d: %w", threadID, err)
	}

	return thread, true, nil
}

// GetThreadByDir returns the manifest entry owning an output directory
func (d *Database) GetThreadByDir(dir string) (models.ArchivedThread, bool, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var thread models.ArchivedThread
	err := d.db.QueryRow(`
	SELECT thread_id, dir, comment_count, run_id, archived_at
	FROM archived_threads
	WHERE dir = ?
	LIMIT 1
	`, dir).Scan(&thread.ThreadID, &thread.Dir, &thread.CommentCount, &thread.RunID, &thread.ArchivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ArchivedThread{}, false, nil
	}
	if err != nil {
		return models.ArchivedThread{}, false, fmt.Errorf("failed to query archived dir %s: %w", dir, err)
	}

	return thread, true, nil
}

// MarkThreadArchived records a thread in the manifest
func (d *Database) MarkThreadArchived(thread models.ArchivedThread) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if thread.ArchivedAt.IsZero() {
		thread.ArchivedAt = time.Now().UTC()
	}

	_, err := d.db.Exec(`
	INSERT OR REPLACE INTO archived_threads (thread_id, dir, comment_count, run_id, archived_at)
	VALUES (?, ?, ?, ?, ?)
	`, thread.ThreadID, thread.Dir, thread.CommentCount, thread.RunID, thread.ArchivedAt)
	if err != nil {
		return fmt.Errorf("failed to mark thread %d archived: %w", thread.ThreadID, err)
	}

	return nil
}

// SavePostings saves a batch of rows in one transaction
func (d *Database) SavePostings(rows []models.PostingRow) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO postings (
		comment_id, comment_status, remote, visa_sponsoring, states, countries, continents,
		cities, tech_stack, job_title, job_type, seniority_level, compensation_min,
		compensation_max, perks, hiring_company, company_size, fundraising_round,
		fundraising_amount, year, month
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.Exec(
			row.CommentID, row.CommentStatus, row.Remote, row.VisaSponsoring, row.States,
			row.Countries, row.Continents, row.Cities, row.TechStack, row.JobTitle, row.JobType,
			row.SeniorityLevel, row.CompensationMin, row.CompensationMax, row.Perks,
			row.HiringCompany, row.CompanySize, row.FundraisingRound, row.FundraisingAmount,
			row.Year, row.Month,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save posting %d: %w", row.CommentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit postings: %w", err)
	}

	d.log.WithField("count", len(rows)).Debug("Saved postings")
	return nil
}

// GetPostings returns every stored posting ordered by year and month
func (d *Database) GetPostings() ([]models.PostingRow, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	rows, err := d.db.Query(`
	SELECT comment_id, comment_status, remote, visa_sponsoring, states, countries, continents,
		cities, tech_stack, job_title, job_type, seniority_level, compensation_min,
		compensation_max, perks, hiring_company, company_size, fundraising_round,
		fundraising_amount, year, month
	FROM postings
	ORDER BY year, month, comment_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query postings: %w", err)
	}
	defer rows.Close()

	postings := make([]models.PostingRow, 0)
	for rows.Next() {
		var p models.PostingRow
		var remote, states, countries, continents, cities, techStack, jobTitle, jobType sql.NullString
		var seniority, perks, company, size, round sql.NullString
		var compMin, compMax, amount sql.NullFloat64

		err := rows.Scan(
			&p.CommentID, &p.CommentStatus, &remote, &p.VisaSponsoring, &states, &countries,
			&continents, &cities, &techStack, &jobTitle, &jobType, &seniority, &compMin,
			&compMax, &perks, &company, &size, &round, &amount, &p.Year, &p.Month,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan posting: %w", err)
		}

		p.Remote = remote.String
		p.States = states.String
		p.Countries = countries.String
		p.Continents = continents.String
		p.Cities = cities.String
		p.TechStack = techStack.String
		p.JobTitle = jobTitle.String
		p.JobType = jobType.String
		p.SeniorityLevel = seniority.String
		p.Perks = perks.String
		p.HiringCompany = company.String
		p.CompanySize = size.String
		p.FundraisingRound = round.String
		p.CompensationMin = floatPtr(compMin)
		p.CompensationMax = floatPtr(compMax)
		p.FundraisingAmount = floatPtr(amount)
		postings = append(postings, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return postings, nil
}

// GetTotalPostings returns the number of stored postings
func (d *Database) GetTotalPostings() (int, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM postings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get total postings: %w", err)
	}

	return count, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
