package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/microlearn/internal/quiz"
	"github.com/at-ishikawa/microlearn/internal/session"
	"github.com/at-ishikawa/microlearn/internal/statistics"
)

func testSnapshot() session.Snapshot {
	return session.Snapshot{
		Phase: session.PhaseCompleted,
		Session: quiz.Session{
			ID:                  "sess_1",
			UserID:              "alice",
			Course:              "Mathematics",
			Topic:               "Calculus",
			TargetQuestionCount: 3,
		},
		Progress: quiz.Progress{
			Score:         25,
			Answered:      2,
			Level:         quiz.LevelMedium,
			CompetenceMap: map[string]float64{"derivatives": 0.75},
			QuestionHistory: []quiz.QuestionRecord{
				{
					ID:              "q1",
					Text:            "d/dx x^2?",
					Options:         []string{"x", "2x", "x^2"},
					UserAnswerIndex: 1,
					CorrectIndex:    1,
					IsCorrect:       true,
					Difficulty:      quiz.LevelEasy,
					Skill:           "derivatives",
				},
				{
					ID:              "q2",
					Text:            "lim x->0 sin(x)/x?",
					Options:         []string{"0", "1"},
					UserAnswerIndex: 0,
					CorrectIndex:    1,
					IsCorrect:       false,
				},
			},
		},
		Completion: session.CompletionEndedEarly,
	}
}

func TestFromSnapshot(t *testing.T) {
	completedAt := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)
	got := FromSnapshot(testSnapshot(), completedAt)

	assert.Equal(t, Report{
		SessionID:           "sess_1",
		UserID:              "alice",
		Course:              "Mathematics",
		Topic:               "Calculus",
		CompletedAt:         completedAt,
		Completion:          "ended_early",
		Score:               25,
		Level:               quiz.LevelMedium,
		Answered:            2,
		TargetQuestionCount: 3,
		Summary: statistics.Summary{
			Total:    2,
			Correct:  1,
			Accuracy: 50,
			Skills: []statistics.SkillStatistics{
				{Skill: "derivatives", Correct: 1, Total: 1, Percentage: 100},
				{Skill: statistics.DefaultSkill, Correct: 0, Total: 1, Percentage: 0},
			},
		},
		CompetenceMap: map[string]float64{"derivatives": 0.75},
		Questions: []Question{
			{
				Number:        1,
				Text:          "d/dx x^2?",
				Options:       []string{"x", "2x", "x^2"},
				UserAnswer:    "2x",
				CorrectAnswer: "2x",
				IsCorrect:     true,
				Skill:         "derivatives",
				Difficulty:    quiz.LevelEasy,
			},
			{
				Number:        2,
				Text:          "lim x->0 sin(x)/x?",
				Options:       []string{"0", "1"},
				UserAnswer:    "0",
				CorrectAnswer: "1",
			},
		},
	}, got)
}

func TestFromHistoryEntry(t *testing.T) {
	completedAt := time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)
	got := FromHistoryEntry("bob", quiz.HistoryEntry{
		SessionID:   "sess_9",
		Course:      "Physics",
		Topic:       "Optics",
		CompletedAt: quiz.Timestamp{Time: completedAt},
		Progress:    quiz.Progress{Score: 10, Answered: 0, Level: quiz.LevelEasy},
	})

	assert.Equal(t, "sess_9", got.SessionID)
	assert.Equal(t, "bob", got.UserID)
	assert.Equal(t, completedAt, got.CompletedAt)
	assert.Empty(t, got.Completion)
	assert.Empty(t, got.Questions)
	assert.Equal(t, 0.0, got.Summary.Accuracy)
}

func TestWriter_RenderMarkdown(t *testing.T) {
	report := FromSnapshot(testSnapshot(), time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, NewWriter(t.TempDir()).RenderMarkdown(&buf, report))
	got := buf.String()

	for _, want := range []string{
		"# Mathematics: Calculus\n",
		"- Session: sess_1\n",
		"- Learner: alice\n",
		"- Completed: 2025-04-01 09:30\n",
		"- Result: ended_early\n",
		"- Score: 25\n",
		"- Level: medium\n",
		"- Answered: 2 / 3\n",
		"- Accuracy: 50.0% (1 / 2)",
		"| derivatives | 1 | 1 | 100.0% |",
		"| General Knowledge | 0 | 1 | 0.0% |",
		"- derivatives: 0.75",
		"### 1. d/dx x^2?",
		"1. x\n2. 2x\n3. x^2",
		"- Your answer: 0\n- Correct answer: 1\n- Result: incorrect",
		"- Difficulty: easy",
	} {
		assert.Contains(t, got, want)
	}
}

func TestWriter_RenderMarkdown_TemplatePath(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "uses filesystem template when available",
			template: "Custom: {{ .SessionID }} {{ printf \"%.0f\" .Summary.Accuracy }}",
			want:     "Custom: sess_1 50",
		},
		{
			name:     "falls back to embedded template on parse error",
			template: "{{ .SessionID ",
			want:     "# Mathematics: Calculus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			templatePath := filepath.Join(t.TempDir(), "custom.md.go.tmpl")
			require.NoError(t, os.WriteFile(templatePath, []byte(tt.template), 0644))

			var buf bytes.Buffer
			writer := NewWriter(t.TempDir(), WithTemplatePath(templatePath))
			require.NoError(t, writer.RenderMarkdown(&buf, FromSnapshot(testSnapshot(), time.Time{})))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestWriter_Save(t *testing.T) {
	report := FromSnapshot(testSnapshot(), time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC))

	t.Run("markdown", func(t *testing.T) {
		outputDirectory := filepath.Join(t.TempDir(), "reports")
		path, err := NewWriter(outputDirectory).Save(report, FormatMarkdown)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(outputDirectory, "sess_1.md"), path)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "# Mathematics: Calculus")
	})

	t.Run("yaml", func(t *testing.T) {
		outputDirectory := t.TempDir()
		path, err := NewWriter(outputDirectory).Save(report, FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(outputDirectory, "sess_1.yml"), path)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		var got Report
		require.NoError(t, yaml.Unmarshal(content, &got))
		assert.Equal(t, report.SessionID, got.SessionID)
		assert.Equal(t, report.Summary, got.Summary)
		assert.Equal(t, report.Questions, got.Questions)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewWriter(t.TempDir()).Save(report, Format("docx"))
		assert.Error(t, err)
	})
}

func TestConvertMarkdownToPDF_RequiresMarkdown(t *testing.T) {
	_, err := ConvertMarkdownToPDF(filepath.Join(t.TempDir(), "report.txt"))
	assert.ErrorContains(t, err, ".md extension")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		value   string
		want    Format
		wantErr bool
	}{
		{value: "md", want: FormatMarkdown},
		{value: "Markdown", want: FormatMarkdown},
		{value: "pdf", want: FormatPDF},
		{value: " yml ", want: FormatYAML},
		{value: "yaml", want: FormatYAML},
		{value: "html", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseFormat(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "sess_1", fileName("sess_1"))
	assert.Equal(t, "a_b_c", fileName("a/b c"))
	assert.Equal(t, "session", fileName("  "))
}
