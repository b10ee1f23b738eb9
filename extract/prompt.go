package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SystemPrompt asks the model for one JSON object describing a Who's Hiring comment
const SystemPrompt = `You are an helpful assistant, you will fill a json object from a Who's Hiring hackernews post. You will use the following json schema to answer: ` + postingSchema

const postingSchema = `{
  "title": "HNJobPosting",
  "type": "object",
  "required": ["comment_status"],
  "properties": {
    "comment_status": {"type": "string", "enum": ["job-offer", "job-demand"], "description": "Indicates if the comment is a job offer or a job demand"},
    "remote": {"type": "string", "enum": ["Remote", "Hybrid", "In Person", "Unknown"], "default": "Unknown", "description": "Whether the job is remote, hybrid, in person, or unknown"},
    "visa_sponsoring": {"type": "boolean", "default": false, "description": "Whether the job offers visa sponsoring or not. HAS TO BE A BOOLEAN VALUE!"},
    "states": {"type": "array", "items": {"type": "string"}, "description": "States where the job is located. Use the ISO 3166-2 code (e.g., 'NY' for New York)"},
    "countries": {"type": "array", "items": {"type": "string"}, "description": "Countries where the job is located. Use the ISO 3166-1 alpha-2 code (e.g., 'US' for United States)"},
    "continents": {"type": "array", "items": {"type": "string", "enum": ["Europe", "Asia", "North America", "South America", "Africa", "Antarctica"]}, "description": "Continents where the job is located"},
    "cities": {"type": "array", "items": {"type": "string"}, "description": "Cities where the job is located, if given."},
    "tech_stack": {"type": "array", "items": {"type": "string"}, "description": "List of technologies forming the tech stack mentioned in the comment (specific databases, programming languages, libraries, etc.)"},
    "job_title": {"type": "array", "items": {"type": "string"}, "description": "Title of the job position, if mentioned"},
    "job_type": {"type": "array", "items": {"type": "string", "enum": ["full-time", "part-time", "contract", "intern"]}, "description": "Type of job (e.g., full-time, part-time, contract, intern)"},
    "seniority_level": {"type": "array", "items": {"type": "string", "enum": ["Junior", "Mid-level", "Senior", "Lead", "Manager", "Executive", "Unknown"]}, "description": "Seniority level required for the job"},
    "compensation_min": {"type": ["number", "null"], "description": "Minimum compensation amount in thousands of USD, if mentioned (e.g., 50 for $50k, 130 for $130k, etc)"},
    "compensation_max": {"type": ["number", "null"], "description": "Maximum compensation amount in thousands of USD, if mentioned (e.g., 150 for $150k, 300 for $300k, etc)"},
    "perks": {"type": "array", "items": {"type": "string"}, "description": "List of perks mentioned in the comment"},
    "hiring_company": {"type": "string", "description": "Name of the hiring company, if mentioned, otherwise N/A"},
    "company_size": {"type": "string", "enum": ["Small", "Medium", "Large", "Unknown"], "default": "Unknown", "description": "Size of the hiring company, if mentioned or if known at the time the job offer was published"},
    "fundraising_round": {"type": "string", "enum": ["Bootstrapped", "Pre-Seed", "Seed", "Series A", "Series B", "Series C", "Unknown"], "default": "Unknown", "description": "Fundraising round of the company, if mentioned"},
    "fundraising_amount": {"type": ["number", "null"], "description": "Fundraising amount of the company in millions of USD, if mentioned (e.g., 100 for $100M, 1000 for $1B, 10000 for $10B+)"}
  }
}`

// UserMessage builds the per-comment request text
func UserMessage(year, month int, comment string) string {
	return fmt.Sprintf("Year: %d, Month: %d, Comment: %s", year, month, comment)
}

// ParseYearMonth recovers the year and month from a message built by UserMessage
func ParseYearMonth(msg string) (int, int, bool) {
	year, ok := fieldBeforeComma(msg, "Year: ")
	if !ok {
		return 0, 0, false
	}
	month, ok := fieldBeforeComma(msg, "Month: ")
	if !ok || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

func fieldBeforeComma(msg, label string) (int, bool) {
	start := strings.Index(msg, label)
	if start < 0 {
		return 0, false
	}
	rest := msg[start+len(label):]
	end := strings.Index(rest, ",")
	if end < 0 {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0, false
	}
	return v, true
}

// CommentText converts a comment's HTML body to plain text, one paragraph per line
func CommentText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse comment html: %w", err)
	}

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	return strings.TrimSpace(doc.Text()), nil
}
