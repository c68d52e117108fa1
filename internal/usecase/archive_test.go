package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/chadiek/mock-interview/internal/interview"
)

type memStorage struct {
	key, contentType string
	body             []byte
	err              error
}

func (m *memStorage) Upload(key, contentType string, body []byte) error {
	m.key, m.contentType, m.body = key, contentType, body
	return m.err
}

func sampleView() interview.SessionView {
	return interview.SessionView{
		ID:       "abc",
		Username: "Ada",
		Track:    "Software Engineer",
		Transcript: []interview.TranscriptRecord{
			{Question: "Explain RESTful APIs.", Answer: "Resources.", Followup: "Versioning?", FollowupAnswer: "In the path."},
		},
	}
}

func TestReportArchiver_Uploads(t *testing.T) {
	st := &memStorage{}
	a := NewReportArchiver(st)
	a.now = func() time.Time { return time.Unix(1700000000, 0) }

	report := interview.Report{Text: "1. Score: 7\nOverall Feedback: good", Scores: []int{7}}
	if err := a.Archive(context.Background(), sampleView(), report); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if st.key != "evaluation_abc_1700000000.md" || st.contentType != "text/markdown" {
		t.Fatalf("unexpected object %q %q", st.key, st.contentType)
	}
	body := string(st.body)
	for _, want := range []string{
		"# Software Engineer interview: Ada",
		"Q1: Explain RESTful APIs.\n🗨 You: Resources.\n🔄 Follow-Up: Versioning?\n🗨 You: In the path.",
		"Overall Feedback: good",
		"- Q1: 7/10",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q:\n%s", want, body)
		}
	}
}

func TestReportArchiver_PropagatesErrors(t *testing.T) {
	a := NewReportArchiver(&memStorage{err: errors.New("bucket not found")})
	if err := a.Archive(context.Background(), sampleView(), interview.Report{}); err == nil {
		t.Fatalf("expected upload error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Archive(ctx, sampleView(), interview.Report{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
