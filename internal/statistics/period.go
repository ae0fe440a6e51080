package statistics

import (
	"sort"

	"github.com/at-ishikawa/microlearn/internal/quiz"
)

// PeriodStatistics holds statistics for a time period
type PeriodStatistics struct {
	Period    string  `yaml:"period"` // "2025-01"
	Sessions  int     `yaml:"sessions"`
	Questions int     `yaml:"questions"`
	Correct   int     `yaml:"correct"`
	Accuracy  float64 `yaml:"accuracy"`
	// AverageScore is the mean of the final scores of the sessions
	AverageScore float64 `yaml:"average_score"`
}

// AggregateStatistics holds totals across all periods
type AggregateStatistics struct {
	Sessions     int     `yaml:"sessions"`
	Questions    int     `yaml:"questions"`
	Correct      int     `yaml:"correct"`
	Accuracy     float64 `yaml:"accuracy"`
	AverageScore float64 `yaml:"average_score"`
	// Courses counts distinct course/topic pairs
	Courses int `yaml:"courses"`
}

// PeriodResult holds both per-period and aggregate statistics
type PeriodResult struct {
	Periods   []PeriodStatistics  `yaml:"periods"`
	Aggregate AggregateStatistics `yaml:"aggregate"`
}

// UndatedPeriod groups sessions without a completion time
const UndatedPeriod = "undated"

type periodData struct {
	sessions   int
	questions  int
	correct    int
	scoreTotal float64
}

func (d *periodData) add(entry quiz.HistoryEntry) {
	summary := Summarize(entry.Progress.QuestionHistory)
	d.sessions++
	d.questions += summary.Total
	d.correct += summary.Correct
	d.scoreTotal += entry.Progress.Score
}

// CalculatePeriodStatistics groups past sessions by the month they were completed in.
// Periods are sorted newest first, with undated sessions last.
func CalculatePeriodStatistics(entries []quiz.HistoryEntry) PeriodResult {
	stats := make(map[string]*periodData)
	total := &periodData{}
	courses := make(map[string]struct{})

	for _, entry := range entries {
		period := UndatedPeriod
		if !entry.CompletedAt.IsZero() {
			period = entry.CompletedAt.Format("2006-01")
		}
		if stats[period] == nil {
			stats[period] = &periodData{}
		}
		stats[period].add(entry)
		total.add(entry)
		courses[entry.Course+"|"+entry.Topic] = struct{}{}
	}

	periods := make([]PeriodStatistics, 0, len(stats))
	for period, data := range stats {
		periods = append(periods, PeriodStatistics{
			Period:       period,
			Sessions:     data.sessions,
			Questions:    data.questions,
			Correct:      data.correct,
			Accuracy:     percentage(data.correct, data.questions),
			AverageScore: average(data.scoreTotal, data.sessions),
		})
	}

	sort.Slice(periods, func(i, j int) bool {
		if periods[i].Period == UndatedPeriod {
			return false
		}
		if periods[j].Period == UndatedPeriod {
			return true
		}
		return periods[i].Period > periods[j].Period
	})

	return PeriodResult{
		Periods: periods,
		Aggregate: AggregateStatistics{
			Sessions:     total.sessions,
			Questions:    total.questions,
			Correct:      total.correct,
			Accuracy:     percentage(total.correct, total.questions),
			AverageScore: average(total.scoreTotal, total.sessions),
			Courses:      len(courses),
		},
	}
}

func average(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
