package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/at-ishikawa/microlearn/internal/quiz"
	"github.com/at-ishikawa/microlearn/internal/report"
)

// PrintSummary writes the result of a session and the review of every answered question
func PrintSummary(w io.Writer, result report.Report) {
	fmt.Fprintf(w, "%s: %s (%s)\n", result.Course, result.Topic, result.SessionID)
	fmt.Fprintf(w, "Score: %s, level: %s\n", formatScore(result.Score), result.Level)
	if result.TargetQuestionCount > 0 {
		fmt.Fprintf(w, "Answered: %d / %d\n", result.Answered, result.TargetQuestionCount)
	} else {
		fmt.Fprintf(w, "Answered: %d\n", result.Answered)
	}
	fmt.Fprintf(w, "Accuracy: %.1f%% (%d / %d)\n", result.Summary.Accuracy, result.Summary.Correct, result.Summary.Total)

	if len(result.Summary.Skills) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skills")
		for _, skill := range result.Summary.Skills {
			fmt.Fprintf(w, "  %-24s  %d / %d  (%.1f%%)\n", skill.Skill, skill.Correct, skill.Total, skill.Percentage)
		}
	}

	if len(result.Questions) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Review")
	for _, question := range result.Questions {
		mark := "❌"
		if question.IsCorrect {
			mark = "✅"
		}
		fmt.Fprintf(w, "%s %d. %s\n", mark, question.Number, question.Text)
		fmt.Fprintf(w, "   Your answer: %s\n", question.UserAnswer)
		if !question.IsCorrect {
			fmt.Fprintf(w, "   Correct answer: %s\n", question.CorrectAnswer)
		}
	}
}

// PrintProgress writes a progress snapshot fetched from the backend
func PrintProgress(w io.Writer, sessionID string, progress quiz.Progress) {
	fmt.Fprintf(w, "Session: %s\n", sessionID)
	fmt.Fprintf(w, "Score: %s, level: %s\n", formatScore(progress.Score), progress.Level)
	fmt.Fprintf(w, "Answered: %d\n", progress.Answered)
	for _, skill := range sortedKeys(progress.CompetenceMap) {
		fmt.Fprintf(w, "  %-24s  %.2f\n", skill, progress.CompetenceMap[skill])
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
