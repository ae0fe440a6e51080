package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/at-ishikawa/microlearn/internal/quiz"
	"github.com/at-ishikawa/microlearn/internal/statistics"
)

// PrintHistory writes past sessions, newest first, followed by monthly statistics
func PrintHistory(w io.Writer, entries []quiz.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}

	sorted := make([]quiz.HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CompletedAt.After(sorted[j].CompletedAt.Time)
	})

	fmt.Fprintf(w, "%-16s  %-24s  %-28s  %8s  %-16s\n", "Completed", "Session", "Course", "Score", "Accuracy")
	fmt.Fprintf(w, "%-16s  %-24s  %-28s  %8s  %-16s\n", "---------", "-------", "------", "-----", "--------")
	for _, entry := range sorted {
		completedAt := "-"
		if !entry.CompletedAt.IsZero() {
			completedAt = entry.CompletedAt.Format("2006-01-02 15:04")
		}
		summary := statistics.Summarize(entry.Progress.QuestionHistory)
		fmt.Fprintf(w, "%-16s  %-24s  %-28s  %8s  %-16s\n",
			completedAt,
			entry.SessionID,
			entry.Course+": "+entry.Topic,
			formatScore(entry.Progress.Score),
			fmt.Sprintf("%.1f%% (%d/%d)", summary.Accuracy, summary.Correct, summary.Total),
		)
	}

	result := statistics.CalculatePeriodStatistics(entries)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Monthly Statistics")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "%-10s  %8s  %-20s  %10s\n", "Period", "Sessions", "Questions (Correct)", "Avg Score")
	fmt.Fprintf(w, "%-10s  %8s  %-20s  %10s\n", "------", "--------", "-------------------", "---------")
	for _, s := range result.Periods {
		fmt.Fprintf(w, "%-10s  %8d  %-20s  %10.1f\n",
			s.Period,
			s.Sessions,
			fmt.Sprintf("%d (%d, %.1f%%)", s.Questions, s.Correct, s.Accuracy),
			s.AverageScore,
		)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-10s  %8d  %-20s  %10.1f\n",
		"Totals:",
		result.Aggregate.Sessions,
		fmt.Sprintf("%d (%d, %.1f%%)", result.Aggregate.Questions, result.Aggregate.Correct, result.Aggregate.Accuracy),
		result.Aggregate.AverageScore,
	)
	fmt.Fprintf(w, "Courses practiced: %d\n", result.Aggregate.Courses)
}

// FindHistoryEntry returns the past session with sessionID
func FindHistoryEntry(entries []quiz.HistoryEntry, sessionID string) (quiz.HistoryEntry, error) {
	for _, entry := range entries {
		if entry.SessionID == sessionID {
			return entry, nil
		}
	}
	return quiz.HistoryEntry{}, fmt.Errorf("session %s is not found in the history", sessionID)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
