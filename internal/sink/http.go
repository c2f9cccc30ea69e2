package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// DispatchTimeout bounds one delivery attempt. There is no retry queue; an
// attempt either lands within this window or the result stays local.
const DispatchTimeout = 10 * time.Second

// collectorRecord is the flat shape the external collector expects. Field
// names follow the spreadsheet collector's columns, not our JSON style.
type collectorRecord struct {
	Name   string `json:"name"`
	ExamID string `json:"examId"`
	Score  int    `json:"score"`
	Total  int    `json:"total"`
	Time   int    `json:"time"`
	Date   string `json:"date"`
}

// HTTPSink POSTs results to a configured collector endpoint. The endpoint
// URL is injected at construction; it is never a package-level constant.
type HTTPSink struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewHTTPSink creates an HTTPSink for the given collector URL.
func NewHTTPSink(url string, log zerolog.Logger) *HTTPSink {
	return &HTTPSink{
		url:    url,
		client: &http.Client{Timeout: DispatchTimeout},
		log:    log.With().Str("component", "result_sink").Logger(),
	}
}

// Submit maps the Result onto the collector's field names and issues one
// POST. A non-2xx status is an error like any transport failure.
func (s *HTTPSink) Submit(ctx context.Context, result model.Result) error {
	record := collectorRecord{
		Name:   result.Candidate.Name,
		ExamID: result.ExamID,
		Score:  result.Score,
		Total:  result.Total,
		Time:   result.TimeTaken,
		Date:   result.SubmittedAt.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}
	return nil
}

// Dispatch fires Submit in a detached goroutine. The outcome is observed
// only for logging; nothing in the session-completion flow waits on it.
func Dispatch(s ResultSink, log zerolog.Logger, result model.Result) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), DispatchTimeout)
		defer cancel()

		if err := s.Submit(ctx, result); err != nil {
			log.Warn().Err(err).
				Str("exam_id", result.ExamID).
				Str("session_id", result.SessionID.String()).
				Msg("Result sink delivery failed")
			return
		}
		log.Debug().
			Str("exam_id", result.ExamID).
			Str("session_id", result.SessionID.String()).
			Msg("Result delivered to collector")
	}()
}
