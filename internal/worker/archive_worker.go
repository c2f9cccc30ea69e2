package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/config"
	"github.com/quizrail/quizrail-backend/internal/model"
	"github.com/quizrail/quizrail-backend/internal/repository"
)

const (
	ArchiveBatchSize    = 50
	ArchiveBatchTimeout = 2 * time.Second
	ArchivePollTimeout  = 1 * time.Second
)

// ArchiveWorker drains the archive queue and persists finished Results to
// PostgreSQL. Archiving runs off the candidate's finish path: a slow or
// down database delays the dashboard, never the result screen.
type ArchiveWorker struct {
	results *repository.ResultRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewArchiveWorker creates a new ArchiveWorker.
func NewArchiveWorker(results *repository.ResultRepository, rdb *redis.Client, log zerolog.Logger) *ArchiveWorker {
	return &ArchiveWorker{
		results: results,
		rdb:     rdb,
		log:     log.With().Str("component", "archive_worker").Logger(),
	}
}

// Enqueue pushes a Result onto the archive queue. Called from the finish
// hook; errors are logged and swallowed there.
func Enqueue(ctx context.Context, rdb *redis.Client, res model.Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return rdb.RPush(ctx, config.WorkerKey.ArchiveResultsQueue, raw).Err()
}

// Start runs the worker loop with batching. Call in a goroutine.
func (w *ArchiveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ArchiveWorker started")

	batch := make([]*model.Result, 0, ArchiveBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ArchiveBatchSize || time.Since(lastFlush) >= ArchiveBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ArchivePollTimeout, config.WorkerKey.ArchiveResultsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var res model.Result
			if err := json.Unmarshal([]byte(item[1]), &res); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &res)
		}
	}
}

// flushSafe bulk-inserts the batch, falling back to single inserts and
// requeueing anything that still fails.
func (w *ArchiveWorker) flushSafe(ctx context.Context, batch []*model.Result) {
	if len(batch) == 0 {
		return
	}

	if err := w.results.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk result archive failed, using fallback")

		for _, res := range batch {
			if err := w.results.Insert(ctx, res); err != nil {
				w.log.Error().Err(err).
					Str("session_id", res.SessionID.String()).
					Msg("single archive failed, requeueing")
				raw, _ := json.Marshal(res)
				w.rdb.RPush(ctx, config.WorkerKey.ArchiveResultsQueue, raw)
			}
		}
	}
}
