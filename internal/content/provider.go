// Package content loads question sets. Exam content lives as JSON documents
// on disk, one file per exam, exactly as the static site variant shipped
// them (exam1.json, exam2.json, ...).
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quizrail/quizrail-backend/internal/model"
)

var (
	// ErrExamNotFound means no content exists for the exam ID.
	ErrExamNotFound = errors.New("exam content not found")
	// ErrBadExamID rejects IDs that are not plain slugs.
	ErrBadExamID = errors.New("invalid exam id")
)

var examIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Provider supplies exam catalogs and question sets.
type Provider interface {
	List(ctx context.Context) ([]model.Exam, error)
	Get(ctx context.Context, examID string) (*model.ExamDocument, error)
}

// FileProvider reads exam documents from a directory. The exam ID is the
// file name without the .json extension.
type FileProvider struct {
	dir string
	log zerolog.Logger
}

// NewFileProvider creates a FileProvider rooted at dir.
func NewFileProvider(dir string, log zerolog.Logger) *FileProvider {
	return &FileProvider{
		dir: dir,
		log: log.With().Str("component", "content_provider").Logger(),
	}
}

// List scans the content directory and builds the exam catalog. Unreadable
// or unparsable files are skipped with a warning so one broken document
// doesn't hide the rest of the catalog.
func (p *FileProvider) List(ctx context.Context) ([]model.Exam, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}

	exams := make([]model.Exam, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")

		doc, err := p.Get(ctx, id)
		if err != nil {
			p.log.Warn().Err(err).Str("exam_id", id).Msg("Skipping unreadable exam document")
			continue
		}

		title := doc.Title
		if title == "" {
			title = id
		}
		exams = append(exams, model.Exam{
			ID:            id,
			Title:         title,
			QuestionCount: len(doc.Questions),
			TotalTime:     doc.Duration(),
		})
	}

	sort.Slice(exams, func(i, j int) bool { return exams[i].ID < exams[j].ID })
	return exams, nil
}

// Get loads one exam document. A missing file maps to ErrExamNotFound; an
// unparsable one is an error (fatal to session start, no partial session).
func (p *FileProvider) Get(_ context.Context, examID string) (*model.ExamDocument, error) {
	if !examIDPattern.MatchString(examID) {
		return nil, ErrBadExamID
	}

	raw, err := os.ReadFile(filepath.Join(p.dir, examID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("read exam %s: %w", examID, err)
	}

	var doc model.ExamDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse exam %s: %w", examID, err)
	}
	return &doc, nil
}
