package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/content"
	"github.com/quizrail/quizrail-backend/internal/model"
	"github.com/quizrail/quizrail-backend/internal/repository"
)

// ExamDashboardEntry joins catalog metadata with archived-result aggregates.
// Exams with no results yet still appear, with zeroed stats.
type ExamDashboardEntry struct {
	model.Exam
	Participants int     `json:"participants"`
	BestScore    int     `json:"best_score"`
	AvgScore     float64 `json:"avg_score"`
	AvgTime      float64 `json:"avg_time"`
}

// DashboardService builds the per-exam results dashboard.
type DashboardService struct {
	provider content.Provider
	results  *repository.ResultRepository
	log      zerolog.Logger
}

// NewDashboardService creates a new DashboardService. results may be nil
// when no archive database is configured; the dashboard then shows the
// catalog with empty stats.
func NewDashboardService(provider content.Provider, results *repository.ResultRepository, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		provider: provider,
		results:  results,
		log:      log.With().Str("component", "dashboard_service").Logger(),
	}
}

// GetDashboard returns one entry per cataloged exam, overlaid with stats
// from the result archive.
func (s *DashboardService) GetDashboard(ctx context.Context) ([]ExamDashboardEntry, error) {
	exams, err := s.provider.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	statsMap := make(map[string]model.ExamStats)
	if s.results != nil {
		stats, err := s.results.StatsByExam(ctx)
		if err != nil {
			return nil, fmt.Errorf("aggregate results: %w", err)
		}
		for _, st := range stats {
			statsMap[st.ExamID] = st
		}
	}

	entries := make([]ExamDashboardEntry, len(exams))
	for i, exam := range exams {
		entry := ExamDashboardEntry{Exam: exam}
		if st, ok := statsMap[exam.ID]; ok {
			entry.Participants = st.Participants
			entry.BestScore = st.BestScore
			entry.AvgScore = st.AvgScore
			entry.AvgTime = st.AvgTime
		}
		entries[i] = entry
	}
	return entries, nil
}
