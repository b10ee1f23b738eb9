package models

import (
	"strconv"
	"strings"
)

const (
	CommentStatusJobOffer  = "job-offer"
	CommentStatusJobDemand = "job-demand"
)

// JobPosting is the structured record the LLM extracts from a comment
type JobPosting struct {
	CommentStatus     string   `json:"comment_status,omitempty"`
	Remote            string   `json:"remote,omitempty"`
	VisaSponsoring    *bool    `json:"visa_sponsoring,omitempty"`
	States            []string `json:"states,omitempty"`
	Countries         []string `json:"countries,omitempty"`
	Continents        []string `json:"continents,omitempty"`
	Cities            []string `json:"cities,omitempty"`
	TechStack         []string `json:"tech_stack,omitempty"`
	JobTitle          []string `json:"job_title,omitempty"`
	JobType           []string `json:"job_type,omitempty"`
	SeniorityLevel    []string `json:"seniority_level,omitempty"`
	CompensationMin   *float64 `json:"compensation_min,omitempty"`
	CompensationMax   *float64 `json:"compensation_max,omitempty"`
	Perks             []string `json:"perks,omitempty"`
	HiringCompany     string   `json:"hiring_company,omitempty"`
	CompanySize       string   `json:"company_size,omitempty"`
	FundraisingRound  string   `json:"fundraising_round,omitempty"`
	FundraisingAmount *float64 `json:"fundraising_amount,omitempty"`
}

// Row flattens the posting into one analysis row
func (p *JobPosting) Row(commentID, year, month int) PostingRow {
	visa := false
	if p.VisaSponsoring != nil {
		visa = *p.VisaSponsoring
	}
	return PostingRow{
		CommentID:         commentID,
		CommentStatus:     p.CommentStatus,
		Remote:            p.Remote,
		VisaSponsoring:    visa,
		States:            strings.Join(p.States, ","),
		Countries:         strings.Join(p.Countries, ","),
		Continents:        strings.Join(p.Continents, ","),
		Cities:            strings.Join(p.Cities, ","),
		TechStack:         strings.Join(p.TechStack, ","),
		JobTitle:          strings.Join(p.JobTitle, ","),
		JobType:           strings.Join(p.JobType, ","),
		SeniorityLevel:    strings.Join(p.SeniorityLevel, ","),
		CompensationMin:   p.CompensationMin,
		CompensationMax:   p.CompensationMax,
		Perks:             strings.Join(p.Perks, ","),
		HiringCompany:     p.HiringCompany,
		CompanySize:       p.CompanySize,
		FundraisingRound:  p.FundraisingRound,
		FundraisingAmount: p.FundraisingAmount,
		Year:              year,
		Month:             month,
	}
}

// PostingRow is a flattened job posting; list fields are comma-joined
type PostingRow struct {
	CommentID         int      `json:"comment_id"`
	CommentStatus     string   `json:"comment_status"`
	Remote            string   `json:"remote"`
	VisaSponsoring    bool     `json:"visa_sponsoring"`
	States            string   `json:"states"`
	Countries         string   `json:"countries"`
	Continents        string   `json:"continents"`
	Cities            string   `json:"cities"`
	TechStack         string   `json:"tech_stack"`
	JobTitle          string   `json:"job_title"`
	JobType           string   `json:"job_type"`
	SeniorityLevel    string   `json:"seniority_level"`
	CompensationMin   *float64 `json:"compensation_min"`
	CompensationMax   *float64 `json:"compensation_max"`
	Perks             string   `json:"perks"`
	HiringCompany     string   `json:"hiring_company"`
	CompanySize       string   `json:"company_size"`
	FundraisingRound  string   `json:"fundraising_round"`
	FundraisingAmount *float64 `json:"fundraising_amount"`
	Year              int      `json:"year"`
	Month             int      `json:"month"`
}

// PostingColumns lists the tabular columns in export order
var PostingColumns = []string{
	"comment_status", "remote", "visa_sponsoring", "states", "countries", "continents",
	"cities", "tech_stack", "job_title", "job_type", "seniority_level", "compensation_min",
	"compensation_max", "perks", "hiring_company", "company_size", "fundraising_round",
	"fundraising_amount", "year", "month",
}

// Record returns the row's values in PostingColumns order
func (r *PostingRow) Record() []string {
	return []string{
		r.CommentStatus,
		r.Remote,
		strconv.FormatBool(r.VisaSponsoring),
		r.States,
		r.Countries,
		r.Continents,
		r.Cities,
		r.TechStack,
		r.JobTitle,
		r.JobType,
		r.SeniorityLevel,
		formatOptional(r.CompensationMin),
		formatOptional(r.CompensationMax),
		r.Perks,
		r.HiringCompany,
		r.CompanySize,
		r.FundraisingRound,
		formatOptional(r.FundraisingAmount),
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
	}
}

// YearMonth returns the "YYYY-MM" grouping key
func (r *PostingRow) YearMonth() string {
	return strconv.Itoa(r.Year) + "-" + leftPad(strconv.Itoa(r.Month))
}

// AverageCompensation returns the midpoint of min and max, if both are known
func (r *PostingRow) AverageCompensation() (float64, bool) {
	if r.CompensationMin == nil || r.CompensationMax == nil {
		return 0, false
	}
	return (*r.CompensationMin + *r.CompensationMax) / 2, true
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func leftPad(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}
