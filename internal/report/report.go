// Package report renders a finished session as markdown, PDF or YAML.
package report

import (
	"time"

	"github.com/at-ishikawa/microlearn/internal/quiz"
	"github.com/at-ishikawa/microlearn/internal/session"
	"github.com/at-ishikawa/microlearn/internal/statistics"
)

// Report is the data of a finished session
type Report struct {
	SessionID           string             `yaml:"session_id"`
	UserID              string             `yaml:"user_id,omitempty"`
	Course              string             `yaml:"course"`
	Topic               string             `yaml:"topic"`
	CompletedAt         time.Time          `yaml:"completed_at,omitempty"`
	Completion          string             `yaml:"completion,omitempty"`
	Score               float64            `yaml:"score"`
	Level               quiz.Level         `yaml:"level"`
	Answered            int                `yaml:"answered"`
	TargetQuestionCount int                `yaml:"target_question_count,omitempty"`
	Summary             statistics.Summary `yaml:"summary"`
	CompetenceMap       map[string]float64 `yaml:"competence_map,omitempty"`
	Questions           []Question         `yaml:"questions"`
}

// Question is one resolved question of the report
type Question struct {
	Number        int        `yaml:"number"`
	Text          string     `yaml:"text"`
	Options       []string   `yaml:"options"`
	UserAnswer    string     `yaml:"user_answer"`
	CorrectAnswer string     `yaml:"correct_answer"`
	IsCorrect     bool       `yaml:"is_correct"`
	Skill         string     `yaml:"skill,omitempty"`
	Difficulty    quiz.Level `yaml:"difficulty,omitempty"`
}

// FromSnapshot builds a report from a session that has just finished
func FromSnapshot(snapshot session.Snapshot, completedAt time.Time) Report {
	report := build(snapshot.Session.ID, snapshot.Session.Course, snapshot.Session.Topic, snapshot.Progress)
	report.UserID = snapshot.Session.UserID
	report.TargetQuestionCount = snapshot.Session.TargetQuestionCount
	report.CompletedAt = completedAt
	if snapshot.Completion != session.CompletionNone {
		report.Completion = snapshot.Completion.String()
	}
	return report
}

// FromHistoryEntry builds a report from a past session
func FromHistoryEntry(userID string, entry quiz.HistoryEntry) Report {
	report := build(entry.SessionID, entry.Course, entry.Topic, entry.Progress)
	report.UserID = userID
	report.CompletedAt = entry.CompletedAt.Time
	return report
}

func build(sessionID, course, topic string, progress quiz.Progress) Report {
	questions := make([]Question, 0, len(progress.QuestionHistory))
	for i, record := range progress.QuestionHistory {
		questions = append(questions, Question{
			Number:        i + 1,
			Text:          record.Text,
			Options:       append([]string(nil), record.Options...),
			UserAnswer:    record.UserAnswer(),
			CorrectAnswer: record.CorrectAnswer(),
			IsCorrect:     record.IsCorrect,
			Skill:         record.Skill,
			Difficulty:    record.Difficulty,
		})
	}

	return Report{
		SessionID:     sessionID,
		Course:        course,
		Topic:         topic,
		Score:         progress.Score,
		Level:         progress.Level,
		Answered:      progress.Answered,
		Summary:       statistics.Summarize(progress.QuestionHistory),
		CompetenceMap: progress.Clone().CompetenceMap,
		Questions:     questions,
	}
}
