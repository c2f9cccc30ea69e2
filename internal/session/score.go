package session

import "github.com/quizrail/quizrail-backend/internal/model"

// Score counts the questions whose recorded answer points at the option
// marked correct. Unanswered questions and degraded questions (no correct
// option) count zero. Pure: same state, same score.
func Score(state *model.SessionState) int {
	score := 0
	for i, q := range state.Questions {
		sel := state.Answers[i]
		if sel == model.Unanswered {
			continue
		}
		if sel >= 0 && sel < len(q.Options) && q.Options[sel].IsCorrect {
			score++
		}
	}
	return score
}
