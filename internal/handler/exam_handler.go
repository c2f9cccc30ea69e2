package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizrail/quizrail-backend/internal/content"
	"github.com/quizrail/quizrail-backend/internal/response"
)

// ExamHandler serves the public exam catalog.
type ExamHandler struct {
	provider content.Provider
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(provider content.Provider) *ExamHandler {
	return &ExamHandler{provider: provider}
}

// ListExams godoc
// GET /api/v1/exams
// Lists every exam that can be started, without question content.
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.provider.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exams": exams,
	})
}
