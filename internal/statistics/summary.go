// Package statistics derives review statistics from question histories.
package statistics

import (
	"github.com/at-ishikawa/microlearn/internal/quiz"
)

// DefaultSkill is the bucket for records without a skill tag
const DefaultSkill = "General Knowledge"

// SkillStatistics holds the results of one skill
type SkillStatistics struct {
	Skill      string  `yaml:"skill"`
	Correct    int     `yaml:"correct"`
	Total      int     `yaml:"total"`
	Percentage float64 `yaml:"percentage"` // 0-100
}

// Summary is derived from a question history and holds no state of its own
type Summary struct {
	Total    int               `yaml:"total"`
	Correct  int               `yaml:"correct"`
	Accuracy float64           `yaml:"accuracy"` // 0-100, 0 when Total is 0
	Skills   []SkillStatistics `yaml:"skills"`
}

// Summarize computes accuracy and the per-skill breakdown of records.
// Skills are listed in the order they first appear.
func Summarize(records []quiz.QuestionRecord) Summary {
	summary := Summary{
		Skills: make([]SkillStatistics, 0),
	}
	indexes := make(map[string]int)

	for _, record := range records {
		skill := record.Skill
		if skill == "" {
			skill = DefaultSkill
		}
		i, ok := indexes[skill]
		if !ok {
			i = len(summary.Skills)
			indexes[skill] = i
			summary.Skills = append(summary.Skills, SkillStatistics{Skill: skill})
		}

		summary.Total++
		summary.Skills[i].Total++
		if record.IsCorrect {
			summary.Correct++
			summary.Skills[i].Correct++
		}
	}

	summary.Accuracy = percentage(summary.Correct, summary.Total)
	for i := range summary.Skills {
		summary.Skills[i].Percentage = percentage(summary.Skills[i].Correct, summary.Skills[i].Total)
	}
	return summary
}

func percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}
