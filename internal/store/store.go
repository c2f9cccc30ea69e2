// Package store persists serialized session state so a page reload can
// resume mid-session. Each session occupies a single named slot that is
// overwritten on every mutation and cleared when the session finishes or a
// fresh one begins.
package store

import (
	"context"
	"errors"

	"github.com/quizrail/quizrail-backend/internal/model"
)

var (
	// ErrNotFound means no state is persisted under the key.
	ErrNotFound = errors.New("session state not found")
	// ErrCorrupt means persisted state exists but cannot be decoded. The
	// caller is expected to discard it and start a fresh session.
	ErrCorrupt = errors.New("persisted session state is corrupt")
)

// SessionStore holds one serialized SessionState per slot key.
type SessionStore interface {
	Save(ctx context.Context, key string, state *model.SessionState) error
	Load(ctx context.Context, key string) (*model.SessionState, error)
	Clear(ctx context.Context, key string) error
}

// validState checks that decoded state is internally consistent before it
// is handed to a resume. Persisted payloads are untrusted: a slot that
// decodes but carries an out-of-range index would wedge the session on the
// first answer, so anything inconsistent is reported as corrupt instead.
func validState(s *model.SessionState) bool {
	n := len(s.Questions)
	if n == 0 || len(s.Answers) != n {
		return false
	}
	if s.Current < 0 || s.Current >= n {
		return false
	}
	if s.MaxReached < s.Current || s.MaxReached >= n {
		return false
	}
	for i, a := range s.Answers {
		if a == model.Unanswered {
			continue
		}
		if a < 0 || a >= len(s.Questions[i].Options) {
			return false
		}
	}
	return true
}
