package interview

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxScore is the top of the per-question scale.
const MaxScore = 10

var scorePattern = regexp.MustCompile(`Score:\s?(\d+)`)

// Report is the outcome of one evaluation request.
type Report struct {
	Text        string    `json:"text"`
	Scores      []int     `json:"scores"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Evaluator grades a whole transcript with one aggregate completion.
type Evaluator struct {
	completer Completer

	// IncludeFollowupInGrading forwards the follow-up question and answer of
	// each record. Off by default: only the opening question and first answer
	// are graded.
	IncludeFollowupInGrading bool
	FallbackText             string

	now func() time.Time
}

func NewEvaluator(c Completer, includeFollowup bool) *Evaluator {
	return &Evaluator{
		completer:                c,
		IncludeFollowupInGrading: includeFollowup,
		FallbackText:             FallbackText,
		now:                      time.Now,
	}
}

// Prompt builds the grading prompt for records.
func (e *Evaluator) Prompt(records []TranscriptRecord) string {
	var b strings.Builder
	b.WriteString(evaluationHeader)
	for i, r := range records {
		fmt.Fprintf(&b, "\n%d. Question: %s\nAnswer: %s\n", i+1, r.Question, r.Answer)
		if e.IncludeFollowupInGrading {
			fmt.Fprintf(&b, "Follow-Up: %s\nFollow-Up Answer: %s\n", r.Followup, r.FollowupAnswer)
		}
	}
	return b.String()
}

// Evaluate always returns a usable report. A completion failure is returned
// alongside a report carrying the fallback text and zero scores.
func (e *Evaluator) Evaluate(ctx context.Context, records []TranscriptRecord) (Report, error) {
	text, err := e.completer.Complete(ctx, SystemPrompt, e.Prompt(records))
	if err != nil {
		text = e.FallbackText
	}
	return Report{
		Text:        text,
		Scores:      ParseScores(text, len(records)),
		GeneratedAt: e.now(),
	}, err
}

// ParseScores extracts every "Score: N" label in order of appearance, clamped
// into [0, MaxScore]. With no labels it returns n zeros so the chart still
// gets one bar per question asked.
func ParseScores(text string, n int) []int {
	matches := scorePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return make([]int, n)
	}
	scores := make([]int, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.Atoi(m[1])
		if err != nil || v > MaxScore {
			// Atoi only fails on overflow here
			v = MaxScore
		}
		scores = append(scores, v)
	}
	return scores
}
