package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/withexxa/hn-whoshiring/models"
)

// ErrMissingStatus is returned for completions without a comment_status
var ErrMissingStatus = errors.New("completion has no comment_status")

// ParseError is returned when a completion cannot be turned into a job posting
type ParseError struct {
	CommentID int
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("comment %d: %v", e.CommentID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParsePosting decodes a completion into a job posting. Field types are read leniently
// (a single string where a list is expected, numbers sent as strings) since models do not
// always follow the schema; a missing comment_status makes the record invalid.
func ParsePosting(commentID int, completion string) (*models.JobPosting, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(completion), &fields); err != nil {
		return nil, &ParseError{CommentID: commentID, Err: err}
	}

	p := &models.JobPosting{
		CommentStatus:     stringField(fields["comment_status"]),
		Remote:            stringField(fields["remote"]),
		VisaSponsoring:    boolField(fields["visa_sponsoring"]),
		States:            listField(fields["states"]),
		Countries:         listField(fields["countries"]),
		Continents:        listField(fields["continents"]),
		Cities:            listField(fields["cities"]),
		TechStack:         listField(fields["tech_stack"]),
		JobTitle:          listField(fields["job_title"]),
		JobType:           listField(fields["job_type"]),
		SeniorityLevel:    listField(fields["seniority_level"]),
		CompensationMin:   floatField(fields["compensation_min"]),
		CompensationMax:   floatField(fields["compensation_max"]),
		Perks:             listField(fields["perks"]),
		HiringCompany:     stringField(fields["hiring_company"]),
		CompanySize:       stringField(fields["company_size"]),
		FundraisingRound:  stringField(fields["fundraising_round"]),
		FundraisingAmount: floatField(fields["fundraising_amount"]),
	}

	if p.CommentStatus == "" {
		return nil, &ParseError{CommentID: commentID, Err: ErrMissingStatus}
	}

	return p, nil
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func listField(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		if s := stringField(raw); s != "" {
			return []string{s}
		}
		return nil
	}

	list := make([]string, 0, len(values))
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				list = append(list, s)
			}
		case float64:
			list = append(list, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	return list
}

func boolField(raw json.RawMessage) *bool {
	if isNull(raw) {
		return nil
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b
	}
	if s := stringField(raw); s != "" {
		if parsed, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
			return &parsed
		}
	}
	return nil
}

func floatField(raw json.RawMessage) *float64 {
	if isNull(raw) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	if s := stringField(raw); s != "" {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return &parsed
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
