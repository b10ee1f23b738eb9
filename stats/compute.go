package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/withexxa/hn-whoshiring/models"
)

const (
	defaultTopCountriesLimit    = 10
	defaultTopTechnologiesLimit = 15
)

var (
	remoteCategories    = []string{"Remote", "Hybrid", "In Person", "Unknown"}
	jobTypeCategories   = []string{"full-time", "part-time", "contract", "intern"}
	seniorityCategories = []string{"Junior", "Mid-level", "Senior", "Lead", "Manager", "Executive"}
	fundraisingRounds   = []string{"Bootstrapped", "Pre-Seed", "Seed", "Series A", "Series B", "Series C"}
)

type salaryRange struct {
	label string
	lower float64
	upper float64 // exclusive; 0 means no upper bound
}

var salaryRanges = []salaryRange{
	{"0-100k", 0, 100},
	{"100k-120k", 100, 120},
	{"120k-140k", 120, 140},
	{"140k-160k", 140, 160},
	{"160k-180k", 160, 180},
	{"180k-200k", 180, 200},
	{"200k-220k", 200, 220},
	{"220k+", 220, 0},
}

var techAliases = map[string]string{
	"javascript":   "js",
	"typescript":   "ts",
	"react.js":     "react",
	"reactjs":      "react",
	"react native": "react",
	"react-native": "react",
	"vue.js":       "vue",
	"vuejs":        "vue",
	"node.js":      "node",
	"nodejs":       "node",
	"postgresql":   "postgres",
	"golang":       "go",
}

// Options tunes which postings count towards the statistics
type Options struct {
	MinMonthlyPostings int     // months with fewer job offers are left out of monthly trends
	MaxCompensation    float64 // average compensations above this are treated as noise
}

// Compute builds descriptive statistics from flattened postings
func Compute(rows []models.PostingRow, opts Options) models.Statistics {
	stats := models.Statistics{
		ValidRecords: len(rows),
		Monthly:      make([]models.MonthlyStats, 0),
		Yearly:       make(map[int]models.YearlyStats),
		LastUpdated:  time.Now(),
	}

	offers := make([]models.PostingRow, 0, len(rows))
	demandsByMonth := make(map[string]int)
	for _, row := range rows {
		switch row.CommentStatus {
		case models.CommentStatusJobOffer:
			offers = append(offers, row)
		case models.CommentStatusJobDemand:
			stats.TotalDemands++
			demandsByMonth[row.YearMonth()]++
		}
	}
	stats.TotalOffers = len(offers)

	stats.Monthly = monthlyStats(offers, demandsByMonth, opts.MinMonthlyPostings)

	byYear := make(map[int][]models.PostingRow)
	for _, row := range offers {
		byYear[row.Year] = append(byYear[row.Year], row)
	}
	for year, yearRows := range byYear {
		stats.Yearly[year] = yearlyStats(year, yearRows, opts.MaxCompensation)
	}

	stats.AverageCompensation = averageCompensation(offers, opts.MaxCompensation)
	stats.TopCountries = topCounts(offers, func(r models.PostingRow) string { return r.Countries }, normalizeCountry, defaultTopCountriesLimit)
	stats.TopTechnologies = topCounts(offers, func(r models.PostingRow) string { return r.TechStack }, normalizeTech, defaultTopTechnologiesLimit)

	return stats
}

func monthlyStats(offers []models.PostingRow, demandsByMonth map[string]int, minPostings int) []models.MonthlyStats {
	byMonth := make(map[string][]models.PostingRow)
	for _, row := range offers {
		byMonth[row.YearMonth()] = append(byMonth[row.YearMonth()], row)
	}

	months := make([]string, 0, len(byMonth))
	for month, monthRows := range byMonth {
		if len(monthRows) >= minPostings {
			months = append(months, month)
		}
	}
	sort.Strings(months)

	monthly := make([]models.MonthlyStats, 0, len(months))
	for _, month := range months {
		monthRows := byMonth[month]
		n := float64(len(monthRows))

		remote := zeroShares(remoteCategories)
		jobTypes := zeroShares(jobTypeCategories)
		visa := 0
		for _, row := range monthRows {
			kind := row.Remote
			if _, ok := remote[kind]; !ok {
				kind = "Unknown"
			}
			remote[kind]++
			for _, jobType := range splitList(row.JobType) {
				if _, ok := jobTypes[jobType]; ok {
					jobTypes[jobType]++
				}
			}
			if row.VisaSponsoring {
				visa++
			}
		}

		monthly = append(monthly, models.MonthlyStats{
			YearMonth:     month,
			Postings:      len(monthRows),
			Offers:        len(monthRows),
			Demands:       demandsByMonth[month],
			Remote:        divide(remote, n),
			JobTypes:      divide(jobTypes, n),
			VisaSponsored: float64(visa) / n,
		})
	}

	return monthly
}

func yearlyStats(year int, rows []models.PostingRow, maxCompensation float64) models.YearlyStats {
	n := float64(len(rows))

	seniority := zeroShares(seniorityCategories)
	rounds := zeroShares(fundraisingRounds)
	salaries := make(map[string]float64, len(salaryRanges))
	for _, r := range salaryRanges {
		salaries[r.label] = 0
	}

	visa := 0
	withCompensation := 0
	for _, row := range rows {
		for _, level := range splitList(row.SeniorityLevel) {
			if _, ok := seniority[level]; ok {
				seniority[level]++
			}
		}
		if _, ok := rounds[row.FundraisingRound]; ok {
			rounds[row.FundraisingRound]++
		}
		if row.VisaSponsoring {
			visa++
		}
		if avg, ok := row.AverageCompensation(); ok && avg <= maxCompensation {
			if label := salaryLabel(avg); label != "" {
				salaries[label]++
				withCompensation++
			}
		}
	}

	return models.YearlyStats{
		Year:                year,
		Postings:            len(rows),
		AverageCompensation: averageCompensation(rows, maxCompensation),
		SalaryRanges:        divide(salaries, float64(withCompensation)),
		Seniority:           divide(seniority, n),
		FundraisingRounds:   divide(rounds, n),
		VisaSponsored:       float64(visa) / n,
	}
}

func averageCompensation(rows []models.PostingRow, maxCompensation float64) *float64 {
	sum, count := 0.0, 0
	for _, row := range rows {
		avg, ok := row.AverageCompensation()
		if !ok || avg > maxCompensation {
			continue
		}
		sum += avg
		count++
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}

func salaryLabel(avg float64) string {
	for _, r := range salaryRanges {
		if avg >= r.lower && (r.upper == 0 || avg < r.upper) {
			return r.label
		}
	}
	return ""
}

func topCounts(rows []models.PostingRow, field func(models.PostingRow) string, normalize func(string) string, limit int) []models.Count {
	counts := make(map[string]int)
	for _, row := range rows {
		for _, value := range splitList(field(row)) {
			if v := normalize(value); v != "" {
				counts[v]++
			}
		}
	}

	top := make([]models.Count, 0, len(counts))
	for label, count := range counts {
		top = append(top, models.Count{Label: label, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Label < top[j].Label
	})

	if len(top) > limit {
		top = top[:limit]
	}
	return top
}

func normalizeCountry(country string) string {
	if country == "GB" {
		return "UK"
	}
	return country
}

func normalizeTech(tech string) string {
	tech = strings.ToLower(tech)
	if alias, ok := techAliases[tech]; ok {
		return alias
	}
	return tech
}

// splitList splits a comma-joined column, dropping empty entries
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func zeroShares(categories []string) map[string]float64 {
	shares := make(map[string]float64, len(categories))
	for _, c := range categories {
		shares[c] = 0
	}
	return shares
}

func divide(counts map[string]float64, n float64) map[string]float64 {
	if n == 0 {
		return counts
	}
	for k, v := range counts {
		counts[k] = v / n
	}
	return counts
}
