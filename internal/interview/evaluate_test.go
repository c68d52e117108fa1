package interview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScores(t *testing.T) {
	cases := []struct {
		name string
		text string
		n    int
		want []int
	}{
		{"in order", "Score: 3 ... Score: 9", 5, []int{3, 9}},
		{"no space", "Score:7", 1, []int{7}},
		{"clamped", "Score: 11\nScore: 99999999999999999999", 2, []int{10, 10}},
		{"more labels than records", "Score: 1 Score: 2 Score: 3", 2, []int{1, 2, 3}},
		{"none", "Overall Feedback: good", 4, []int{0, 0, 0, 0}},
		{"none and empty transcript", "", 0, []int{}},
		{"case sensitive", "score: 5", 1, []int{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseScores(tc.text, tc.n))
		})
	}
}

func TestEvaluator_PromptOmitsFollowupByDefault(t *testing.T) {
	records := []TranscriptRecord{
		{Question: "Q one", Answer: "A one", Followup: "F one", FollowupAnswer: "FA one"},
		{Question: "Q two", Answer: "", Followup: "F two", FollowupAnswer: ""},
	}
	e := NewEvaluator(&fakeCompleter{}, false)
	p := e.Prompt(records)
	assert.True(t, strings.HasPrefix(p, evaluationHeader))
	assert.Contains(t, p, "\n1. Question: Q one\nAnswer: A one\n")
	assert.Contains(t, p, "\n2. Question: Q two\nAnswer: \n")
	assert.NotContains(t, p, "F one")

	e.IncludeFollowupInGrading = true
	p = e.Prompt(records)
	assert.Contains(t, p, "Follow-Up: F one\nFollow-Up Answer: FA one\n")
}

func TestEvaluator_Evaluate(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	comp := &fakeCompleter{reply: "1. Score: 8\nOverall Feedback: solid"}
	e := NewEvaluator(comp, false)
	e.now = func() time.Time { return fixed }

	report, err := e.Evaluate(context.Background(), []TranscriptRecord{{Question: "q", Answer: "a"}})
	require.NoError(t, err)
	assert.Equal(t, []int{8}, report.Scores)
	assert.Equal(t, fixed, report.GeneratedAt)
	require.Len(t, comp.prompts, 1)
	assert.Contains(t, comp.prompts[0], "1. Question: q\nAnswer: a\n")
}

func TestEvaluator_EvaluateFailureFallsBack(t *testing.T) {
	e := NewEvaluator(&fakeCompleter{err: errors.New("quota")}, false)
	report, err := e.Evaluate(context.Background(), make([]TranscriptRecord, 3))
	require.Error(t, err)
	assert.Equal(t, FallbackText, report.Text)
	assert.Equal(t, []int{0, 0, 0}, report.Scores)
}
