package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chadiek/mock-interview/internal/interview"
)

// Storage abstracts file upload behavior for reports.
type Storage interface {
	Upload(objectKey string, contentType string, body []byte) error
}

// ReportArchiver stores each evaluation as a markdown object.
type ReportArchiver struct {
	storage Storage
	now     func() time.Time
}

func NewReportArchiver(storage Storage) *ReportArchiver {
	return &ReportArchiver{storage: storage, now: time.Now}
}

// Archive implements interview.Archiver.
func (a *ReportArchiver) Archive(ctx context.Context, view interview.SessionView, report interview.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := ObjectKey(view.ID, a.now())
	if err := a.storage.Upload(key, "text/markdown", []byte(RenderReport(view, report))); err != nil {
		return fmt.Errorf("archive report: %w", err)
	}
	return nil
}

func ObjectKey(sessionID string, at time.Time) string {
	return fmt.Sprintf("evaluation_%s_%d.md", sessionID, at.Unix())
}

// RenderReport lays out the transcript blocks, the model's report and the
// score list.
func RenderReport(view interview.SessionView, report interview.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s interview: %s\n\n", view.Track, view.Username)
	if !report.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "Evaluated %s\n\n", report.GeneratedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("## Transcript\n\n")
	for i, r := range view.Transcript {
		b.WriteString(r.Format(i + 1))
		b.WriteString("\n\n")
	}
	b.WriteString("## Evaluation\n\n")
	b.WriteString(strings.TrimSpace(report.Text))
	b.WriteString("\n\n## Scores\n\n")
	for i, s := range report.Scores {
		fmt.Fprintf(&b, "- Q%d: %d/%d\n", i+1, s, interview.MaxScore)
	}
	return b.String()
}
