package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/microlearn/internal/quiz"
	"github.com/at-ishikawa/microlearn/internal/report"
)

func historyEntries() []quiz.HistoryEntry {
	q1 := testQuestion("q1", "d/dx x^2?")
	q2 := testQuestion("q2", "d/dx 1?")
	return []quiz.HistoryEntry{
		{
			SessionID:   "sess_old",
			Course:      "Mathematics",
			Topic:       "Calculus",
			CompletedAt: quiz.Timestamp{Time: time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)},
			Progress: quiz.Progress{
				Score:           10,
				Answered:        2,
				Level:           quiz.LevelEasy,
				QuestionHistory: []quiz.QuestionRecord{record(q1, 2, 2), record(q2, 1, 0)},
			},
		},
		{
			SessionID:   "sess_new",
			Course:      "Mathematics",
			Topic:       "Limits",
			CompletedAt: quiz.Timestamp{Time: time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)},
			Progress: quiz.Progress{
				Score:           30,
				Answered:        1,
				Level:           quiz.LevelMedium,
				QuestionHistory: []quiz.QuestionRecord{record(q1, 2, 2)},
			},
		},
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, historyEntries())
	got := buf.String()

	newIndex := strings.Index(got, "sess_new")
	oldIndex := strings.Index(got, "sess_old")
	require.NotEqual(t, -1, newIndex)
	require.NotEqual(t, -1, oldIndex)
	assert.Less(t, newIndex, oldIndex)

	for _, want := range []string{
		"2025-04-01 09:30",
		"Mathematics: Limits",
		"50.0% (1/2)",
		"Monthly Statistics",
		"2025-04",
		"2025-02",
		"Courses practiced: 2",
	} {
		assert.Contains(t, got, want)
	}
}

func TestPrintHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	PrintHistory(&buf, nil)
	assert.Equal(t, "No sessions found.\n", buf.String())
}

func TestFindHistoryEntry(t *testing.T) {
	entry, err := FindHistoryEntry(historyEntries(), "sess_old")
	require.NoError(t, err)
	assert.Equal(t, "Calculus", entry.Topic)

	_, err = FindHistoryEntry(historyEntries(), "sess_missing")
	assert.ErrorContains(t, err, "sess_missing")
}

func TestPrintSummary(t *testing.T) {
	entry := historyEntries()[0]
	var buf bytes.Buffer
	PrintSummary(&buf, report.FromHistoryEntry("alice", entry))

	assert.Equal(t, `Mathematics: Calculus (sess_old)
Score: 10, level: easy
Answered: 2
Accuracy: 50.0% (1 / 2)

Skills
  derivatives               1 / 2  (50.0%)

Review
✅ 1. d/dx x^2?
   Your answer: 2x
❌ 2. d/dx 1?
   Your answer: 1
   Correct answer: 0
`, buf.String())
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	PrintProgress(&buf, "sess_1", quiz.Progress{
		Score:         12.5,
		Answered:      3,
		Level:         quiz.LevelHard,
		CompetenceMap: map[string]float64{"limits": 0.5, "derivatives": 0.8},
	})

	assert.Equal(t, `Session: sess_1
Score: 12.5, level: hard
Answered: 3
  derivatives               0.80
  limits                    0.50
`, buf.String())
}
