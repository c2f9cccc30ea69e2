package model

import "encoding/json"

// RawQuestion is an untrusted question record as it appears in exam content
// files. Field names vary between content revisions, so the record is kept as
// a raw key/value map and resolved by the normalize package.
type RawQuestion map[string]json.RawMessage

// Option is a single answer choice within a question.
type Option struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question is a normalized exam question. Options keep their correctness tag
// through shuffling; a question with no correct option is a degraded question
// (malformed source data) and simply can never score a point.
type Question struct {
	ID      string   `json:"id,omitempty"`
	Text    string   `json:"text"`
	Options []Option `json:"options"`
}

// HasCorrectOption reports whether any option is marked correct.
func (q Question) HasCorrectOption() bool {
	for _, o := range q.Options {
		if o.IsCorrect {
			return true
		}
	}
	return false
}

// QuestionView is a question as delivered to the candidate: option texts
// only, never the correctness flags.
type QuestionView struct {
	ID      string   `json:"id,omitempty"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// View strips correctness flags for candidate-facing payloads.
func (q Question) View() QuestionView {
	opts := make([]string, len(q.Options))
	for i, o := range q.Options {
		opts[i] = o.Text
	}
	return QuestionView{ID: q.ID, Text: q.Text, Options: opts}
}
