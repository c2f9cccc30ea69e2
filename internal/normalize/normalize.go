// Package normalize converts heterogeneous raw question records into the
// uniform Question shape. All field-name aliasing for untrusted content is
// resolved here, once, against explicit ordered alias lists; nothing past
// this package ever looks at a raw record.
package normalize

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// Accepted aliases, in resolution order. First present wins.
var (
	promptAliases  = []string{"q", "question", "questionText"}
	correctAliases = []string{"correct", "correct_answer", "correctAnswer"}
	idAliases      = []string{"id", "questionId"}
)

// Question converts one raw record into a Question. It is a pure function
// with no failure mode: missing or malformed fields degrade the output (an
// empty prompt, no options, or no correct option) but never error.
func Question(raw model.RawQuestion) model.Question {
	texts := optionTexts(raw["options"])
	correct, hasCorrect := correctIndex(raw)

	opts := make([]model.Option, len(texts))
	for i, t := range texts {
		opts[i] = model.Option{
			Text:      t,
			IsCorrect: hasCorrect && i == correct,
		}
	}

	return model.Question{
		ID:      firstString(raw, idAliases),
		Text:    firstString(raw, promptAliases),
		Options: opts,
	}
}

// Questions normalizes a whole question set.
func Questions(raws []model.RawQuestion) []model.Question {
	out := make([]model.Question, len(raws))
	for i, r := range raws {
		out[i] = Question(r)
	}
	return out
}

// optionTexts accepts options either as an ordered sequence or as a keyed
// mapping. Mapping keys are sorted lexicographically before taking values so
// the enumeration order is deterministic across runs.
func optionTexts(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var seq []string
	if err := json.Unmarshal(raw, &seq); err == nil {
		return seq
	}

	var keyed map[string]string
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	texts := make([]string, len(keys))
	for i, k := range keys {
		texts[i] = keyed[k]
	}
	return texts
}

// correctIndex resolves the correct-option index from the first present
// numeric alias. A missing or non-numeric value yields no correct option,
// which is an allowed degraded state rather than an error. An out-of-range
// index is reported as-is; it will simply never match an option.
func correctIndex(raw model.RawQuestion) (int, bool) {
	for _, alias := range correctAliases {
		v, ok := raw[alias]
		if !ok {
			continue
		}
		var n int
		if err := json.Unmarshal(v, &n); err == nil {
			return n, true
		}
		return 0, false
	}
	return 0, false
}

// firstString resolves the first present alias into a string. Numeric values
// (seen for ids in some content revisions) are formatted as decimal.
func firstString(raw model.RawQuestion, aliases []string) string {
	for _, alias := range aliases {
		v, ok := raw[alias]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		var n int64
		if err := json.Unmarshal(v, &n); err == nil {
			return strconv.FormatInt(n, 10)
		}
	}
	return ""
}
