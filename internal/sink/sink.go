// Package sink delivers final results to the external collector. Delivery
// is at-most-once and best-effort: the candidate sees their result whether
// or not the collector ever hears about it.
package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// ResultSink receives a finished Result. Submit reports transport failures
// so they can be logged; callers must treat them as non-fatal.
type ResultSink interface {
	Submit(ctx context.Context, result model.Result) error
}

// Noop is the sink used when no collector URL is configured. It only notes
// that results are staying local.
type Noop struct {
	log zerolog.Logger
}

// NewNoop creates a Noop sink.
func NewNoop(log zerolog.Logger) *Noop {
	return &Noop{log: log.With().Str("component", "result_sink").Logger()}
}

func (n *Noop) Submit(_ context.Context, result model.Result) error {
	n.log.Warn().
		Str("exam_id", result.ExamID).
		Msg("No result collector configured; result not sent remotely")
	return nil
}
