package worker

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// QueueArchiver feeds finished Results into the archive queue consumed by
// the ArchiveWorker.
type QueueArchiver struct {
	rdb *redis.Client
}

// NewQueueArchiver creates a QueueArchiver.
func NewQueueArchiver(rdb *redis.Client) *QueueArchiver {
	return &QueueArchiver{rdb: rdb}
}

func (a *QueueArchiver) Archive(ctx context.Context, res model.Result) error {
	return Enqueue(ctx, a.rdb, res)
}
