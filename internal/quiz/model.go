// Package quiz holds the data model shared by the transport, the session state machine and reporting.
package quiz

import (
	"bytes"
	"fmt"
	"time"
)

// Level is the difficulty tier the backend has adapted the session to
type Level string

const (
	LevelEasy   Level = "easy"
	LevelMedium Level = "medium"
	LevelHard   Level = "hard"
)

// Valid reports whether the level is one of the known tiers
func (l Level) Valid() bool {
	switch l {
	case LevelEasy, LevelMedium, LevelHard:
		return true
	}
	return false
}

// Unit is one presented learning item. It is either a Question or a Content card.
type Unit interface {
	unit()
}

// Question is a multiple choice question served by the backend
type Question struct {
	ID         string   `json:"id" yaml:"id"`
	Text       string   `json:"text" yaml:"text"`
	Options    []string `json:"options" yaml:"options"`
	Difficulty Level    `json:"difficulty" yaml:"difficulty"`
	Skill      string   `json:"skill,omitempty" yaml:"skill,omitempty"`
}

func (Question) unit() {}

// HasOption reports whether index points at one of the options
func (q Question) HasOption(index int) bool {
	return index >= 0 && index < len(q.Options)
}

// Content is an informational card. It always carries the question that follows it.
type Content struct {
	Title        string   `json:"title" yaml:"title"`
	Body         string   `json:"content" yaml:"content"`
	NextQuestion Question `json:"next_question" yaml:"next_question"`
}

func (Content) unit() {}

// Progress is the backend's snapshot of a session after each interaction.
// It is replaced as a whole and never patched field by field.
type Progress struct {
	Score           float64            `json:"score" yaml:"score"`
	Answered        int                `json:"answered" yaml:"answered"`
	Level           Level              `json:"level" yaml:"level"`
	CompetenceMap   map[string]float64 `json:"competence_map,omitempty" yaml:"competence_map,omitempty"`
	QuestionHistory []QuestionRecord   `json:"question_history,omitempty" yaml:"question_history,omitempty"`
}

// Clone returns a deep copy so that callers cannot mutate a snapshot they were handed
func (p Progress) Clone() Progress {
	cloned := p
	if p.CompetenceMap != nil {
		cloned.CompetenceMap = make(map[string]float64, len(p.CompetenceMap))
		for skill, value := range p.CompetenceMap {
			cloned.CompetenceMap[skill] = value
		}
	}
	if p.QuestionHistory != nil {
		cloned.QuestionHistory = make([]QuestionRecord, len(p.QuestionHistory))
		for i, record := range p.QuestionHistory {
			record.Options = append([]string(nil), record.Options...)
			cloned.QuestionHistory[i] = record
		}
	}
	return cloned
}

// QuestionRecord is one resolved question kept for review.
// IsCorrect is asserted by the backend and is not recomputed here.
type QuestionRecord struct {
	ID              string   `json:"id,omitempty" yaml:"id,omitempty"`
	Text            string   `json:"text" yaml:"text"`
	Options         []string `json:"options" yaml:"options"`
	UserAnswerIndex int      `json:"user_answer_index" yaml:"user_answer_index"`
	CorrectIndex    int      `json:"correct_index" yaml:"correct_index"`
	IsCorrect       bool     `json:"is_correct" yaml:"is_correct"`
	Difficulty      Level    `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	Skill           string   `json:"skill,omitempty" yaml:"skill,omitempty"`
}

// UserAnswer returns the option text the learner chose, or "" when the index is out of range
func (r QuestionRecord) UserAnswer() string {
	return optionAt(r.Options, r.UserAnswerIndex)
}

// CorrectAnswer returns the option text of the correct answer, or "" when the index is out of range
func (r QuestionRecord) CorrectAnswer() string {
	return optionAt(r.Options, r.CorrectIndex)
}

func optionAt(options []string, index int) string {
	if index < 0 || index >= len(options) {
		return ""
	}
	return options[index]
}

// Session identifies one quiz attempt. Everything except ID is fixed at creation.
type Session struct {
	ID                  string
	UserID              string
	Course              string
	Topic               string
	TargetQuestionCount int
}

// StartParams is the local input for starting a session
type StartParams struct {
	UserID       string `mapstructure:"user_id" validate:"notblank"`
	Course       string `mapstructure:"course" validate:"notblank"`
	Topic        string `mapstructure:"topic" validate:"notblank"`
	NumQuestions int    `mapstructure:"num_questions" validate:"min=1,max=20"`
}

// AnswerSubmission is the outbound answer for the current question
type AnswerSubmission struct {
	SessionID   string  `json:"session_id"`
	QuestionID  string  `json:"question_id"`
	AnswerIndex int     `json:"answer_index"`
	TimeTaken   float64 `json:"time_taken"`
}

// HistoryEntry is one completed session as listed by the history endpoint
type HistoryEntry struct {
	SessionID   string    `json:"session_id" yaml:"session_id"`
	Course      string    `json:"course" yaml:"course"`
	Topic       string    `json:"topic" yaml:"topic"`
	CompletedAt Timestamp `json:"completed_at" yaml:"completed_at"`
	Progress    Progress  `json:"progress" yaml:"progress"`
}

// timestampLayouts are tried in order. The reference backend emits naive ISO timestamps without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts RFC 3339 as well as zone-less ISO timestamps, which are read as UTC
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be a JSON string: %s", data)
	}
	value := string(data[1 : len(data)-1])
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp format: %q", value)
}
