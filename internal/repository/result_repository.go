package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// ResultRepository archives finished Results for the dashboard. The archive
// is append-only; Results are immutable once created.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Insert archives a single Result. The session ID is the primary key, so a
// replayed archive payload cannot produce a duplicate row.
func (r *ResultRepository) Insert(ctx context.Context, res *model.Result) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO results
		    (session_id, candidate_name, affiliation, contact, exam_id,
		     score, total, time_taken, submitted_at, time_expired)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO NOTHING`,
		res.SessionID, res.Candidate.Name, res.Candidate.Affiliation, res.Candidate.Contact,
		res.ExamID, res.Score, res.Total, res.TimeTaken, res.SubmittedAt, res.TimeExpired,
	)
	return err
}

// BulkInsert archives a batch of Results with a single UNNEST statement.
func (r *ResultRepository) BulkInsert(ctx context.Context, batch []*model.Result) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	sessionIDs := make([]uuid.UUID, 0, n)
	names := make([]string, 0, n)
	affiliations := make([]string, 0, n)
	contacts := make([]string, 0, n)
	examIDs := make([]string, 0, n)
	scores := make([]int, 0, n)
	totals := make([]int, 0, n)
	timeTakens := make([]int, 0, n)
	submittedAts := make([]time.Time, 0, n)
	timeExpireds := make([]bool, 0, n)

	for _, res := range batch {
		sessionIDs = append(sessionIDs, res.SessionID)
		names = append(names, res.Candidate.Name)
		affiliations = append(affiliations, res.Candidate.Affiliation)
		contacts = append(contacts, res.Candidate.Contact)
		examIDs = append(examIDs, res.ExamID)
		scores = append(scores, res.Score)
		totals = append(totals, res.Total)
		timeTakens = append(timeTakens, res.TimeTaken)
		submittedAts = append(submittedAts, res.SubmittedAt)
		timeExpireds = append(timeExpireds, res.TimeExpired)
	}

	query := `
		INSERT INTO results
		    (session_id, candidate_name, affiliation, contact, exam_id,
		     score, total, time_taken, submitted_at, time_expired)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::text[],
			$3::text[],
			$4::text[],
			$5::text[],
			$6::int[],
			$7::int[],
			$8::int[],
			$9::timestamptz[],
			$10::bool[]
		)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		sessionIDs, names, affiliations, contacts, examIDs,
		scores, totals, timeTakens, submittedAts, timeExpireds,
	)
	return err
}

// StatsByExam aggregates archived results per exam: participant count, best
// and average score, average time taken.
func (r *ResultRepository) StatsByExam(ctx context.Context) ([]model.ExamStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT exam_id,
		        COUNT(*),
		        MAX(score),
		        AVG(score),
		        AVG(time_taken)
		 FROM results
		 GROUP BY exam_id
		 ORDER BY exam_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.ExamStats
	for rows.Next() {
		var s model.ExamStats
		if err := rows.Scan(&s.ExamID, &s.Participants, &s.BestScore, &s.AvgScore, &s.AvgTime); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ListByExam returns archived results for one exam, newest first.
func (r *ResultRepository) ListByExam(ctx context.Context, examID string, limit int) ([]model.Result, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, candidate_name, affiliation, contact, exam_id,
		        score, total, time_taken, submitted_at, time_expired
		 FROM results
		 WHERE exam_id = $1
		 ORDER BY submitted_at DESC
		 LIMIT $2`, examID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		if err := rows.Scan(
			&res.SessionID, &res.Candidate.Name, &res.Candidate.Affiliation, &res.Candidate.Contact,
			&res.ExamID, &res.Score, &res.Total, &res.TimeTaken, &res.SubmittedAt, &res.TimeExpired,
		); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
