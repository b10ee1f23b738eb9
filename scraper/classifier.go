package scraper

import (
	"fmt"
	"strings"
)

// ThreadKind is the kind of monthly thread posted by the whoishiring account
type ThreadKind int

const (
	OtherThread ThreadKind = iota
	JobOfferThread
	JobSeekerThread
)

func (k ThreadKind) String() string {
	switch k {
	case JobOfferThread:
		return "job-offer"
	case JobSeekerThread:
		return "job-seeker"
	default:
		return "other"
	}
}

// Classifier decides which kind of thread a title belongs to
type Classifier interface {
	Classify(title string) ThreadKind
}

// SubstringClassifier treats any title containing "hiring" as a job-offer thread.
// "Who wants to be hired?" threads are left out only because they say "hired", not "hiring".
type SubstringClassifier struct{}

func (SubstringClassifier) Classify(title string) ThreadKind {
	if strings.Contains(strings.ToLower(title), "hiring") {
		return JobOfferThread
	}
	return OtherThread
}

// TitleClassifier recognises the seeker and freelancer threads explicitly before
// falling back to the "hiring" substring rule
type TitleClassifier struct{}

func (TitleClassifier) Classify(title string) ThreadKind {
	lower := strings.ToLower(title)
	switch {
	case strings.Contains(lower, "wants to be hired"):
		return JobSeekerThread
	case strings.Contains(lower, "freelancer"):
		return OtherThread
	case strings.Contains(lower, "hiring"):
		return JobOfferThread
	default:
		return OtherThread
	}
}

// NewClassifier returns the classifier registered under name
func NewClassifier(name string) (Classifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "title":
		return TitleClassifier{}, nil
	case "substring":
		return SubstringClassifier{}, nil
	default:
		return nil, fmt.Errorf("unknown thread classifier %q", name)
	}
}
