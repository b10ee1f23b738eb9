package models

import (
	"time"
)

// Count is a label with its number of occurrences
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthlyStats holds job-offer trends for one year-month
type MonthlyStats struct {
	YearMonth     string             `json:"year_month"`
	Postings      int                `json:"postings"`
	Offers        int                `json:"offers"`
	Demands       int                `json:"demands"`
	Remote        map[string]float64 `json:"remote"`
	JobTypes      map[string]float64 `json:"job_types"`
	VisaSponsored float64            `json:"visa_sponsored"`
}

// YearlyStats holds job-offer aggregates for one year
type YearlyStats struct {
	Year                int                `json:"year"`
	Postings            int                `json:"postings"`
	AverageCompensation *float64           `json:"average_compensation,omitempty"`
	SalaryRanges        map[string]float64 `json:"salary_ranges"`
	Seniority           map[string]float64 `json:"seniority"`
	FundraisingRounds   map[string]float64 `json:"fundraising_rounds"`
	VisaSponsored       float64            `json:"visa_sponsored"`
}

// Statistics holds descriptive statistics about the archived job postings
type Statistics struct {
	ValidRecords        int                 `json:"valid_records"`
	InvalidRecords      int                 `json:"invalid_records"`
	TotalOffers         int                 `json:"total_offers"`
	TotalDemands        int                 `json:"total_demands"`
	AverageCompensation *float64            `json:"average_compensation,omitempty"`
	Monthly             []MonthlyStats      `json:"monthly"`
	Yearly              map[int]YearlyStats `json:"yearly"`
	TopCountries        []Count             `json:"top_countries"`
	TopTechnologies     []Count             `json:"top_technologies"`
	LastUpdated         time.Time           `json:"last_updated"`
}
