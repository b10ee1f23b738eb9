package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// Item represents a Hacker News item (thread or comment)
type Item struct {
	ID          int    `json:"id"`
	Type        string `json:"type,omitempty"`
	By          string `json:"by,omitempty"`
	Time        int64  `json:"time,omitempty"`
	Deleted     bool   `json:"deleted,omitempty"`
	Dead        bool   `json:"dead,omitempty"`
	Parent      int    `json:"parent,omitempty"`
	Kids        []int  `json:"kids,omitempty"`
	Title       string `json:"title,omitempty"`
	Text        string `json:"text,omitempty"`
	Descendants int    `json:"descendants,omitempty"`
	Score       int    `json:"score,omitempty"`

	// raw holds the body the item was decoded from; it is written back as-is
	raw json.RawMessage
}

type itemFields Item

// UnmarshalJSON decodes the known fields and keeps the original body
func (i *Item) UnmarshalJSON(data []byte) error {
	var fields itemFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*i = Item(fields)
	i.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

// MarshalJSON returns the original body when the item came from the API
func (i Item) MarshalJSON() ([]byte, error) {
	if len(i.raw) > 0 {
		return i.raw, nil
	}
	return json.Marshal(itemFields(i))
}

// CreatedAt returns the item timestamp in UTC
func (i *Item) CreatedAt() time.Time {
	return time.Unix(i.Time, 0).UTC()
}

// User represents a Hacker News user profile
type User struct {
	ID        string `json:"id"`
	Created   int64  `json:"created,omitempty"`
	Karma     int    `json:"karma,omitempty"`
	Submitted []int  `json:"submitted"`
}

// ArchivedThread is a manifest entry for a thread whose comments were archived
type ArchivedThread struct {
	ThreadID     int       `json:"thread_id"`
	Dir          string    `json:"dir"`
	CommentCount int       `json:"comment_count"`
	RunID        string    `json:"run_id"`
	ArchivedAt   time.Time `json:"archived_at"`
}

// CompletionRecord is one LLM completion for one comment
type CompletionRecord struct {
	CommentID  int    `json:"comment_id"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
	Error      string `json:"error,omitempty"`
}
