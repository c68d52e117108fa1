package interview

import "fmt"

// TranscriptRecord is one question/answer/follow-up/follow-up-answer
// quadruple. Answers are empty when a capture failed.
type TranscriptRecord struct {
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	Followup       string `json:"followup"`
	FollowupAnswer string `json:"followupAnswer"`
}

// Format renders the record as the four-line block shown on the page.
// n is the 1-based question number.
func (r TranscriptRecord) Format(n int) string {
	return fmt.Sprintf("Q%d: %s\n🗨 You: %s\n🔄 Follow-Up: %s\n🗨 You: %s",
		n, r.Question, r.Answer, r.Followup, r.FollowupAnswer)
}

// Store is the append-only transcript of one session. It is not safe for
// concurrent use; Session guards it.
type Store struct {
	limit   int
	records []TranscriptRecord
}

// NewStore returns a store holding at most limit records. A limit of zero
// means unbounded.
func NewStore(limit int) *Store {
	return &Store{limit: limit}
}

func (s *Store) Append(r TranscriptRecord) error {
	if s.limit > 0 && len(s.records) >= s.limit {
		return ErrTranscriptFull
	}
	s.records = append(s.records, r)
	return nil
}

// All returns a copy of the records in append order.
func (s *Store) All() []TranscriptRecord {
	return append([]TranscriptRecord(nil), s.records...)
}

func (s *Store) Len() int { return len(s.records) }

func (s *Store) Clear() { s.records = nil }
