package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vina-edu/academic-api/internal/models"
	"github.com/vina-edu/academic-api/internal/service"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
	"github.com/vina-edu/academic-api/pkg/response"
)

// GradeHandler exposes grade entry and summary endpoints.
type GradeHandler struct {
	grades *service.GradeService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades *service.GradeService) *GradeHandler {
	return &GradeHandler{grades: grades}
}

// Record godoc
// @Summary Record a grade value
// @Description Writes one component cell and its audit entry atomically.
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body service.RecordGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Record(c *gin.Context) {
	var req service.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	component, entry, err := h.grades.RecordGradeChange(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"grade": component, "audit": entry})
}

// Summary godoc
// @Summary Compute a subject summary grade
// @Tags Grades
// @Produce json
// @Param term_id query string true "Term ID"
// @Param class_id query string true "Class ID"
// @Param student_id query string true "Student ID"
// @Param subject_id query string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /grades/summary [get]
func (h *GradeHandler) Summary(c *gin.Context) {
	scope := models.GradeScope{
		TermID:    c.Query("term_id"),
		ClassID:   c.Query("class_id"),
		StudentID: c.Query("student_id"),
		SubjectID: c.Query("subject_id"),
	}
	if scope.TermID == "" || scope.ClassID == "" || scope.StudentID == "" || scope.SubjectID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id, class_id, student_id and subject_id are required"))
		return
	}
	summary, err := h.grades.ComputeSummary(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// ReportCard godoc
// @Summary Assemble a student report card
// @Tags Grades
// @Produce json
// @Param term_id query string true "Term ID"
// @Param class_id query string true "Class ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /grades/report-card/{student_id} [get]
func (h *GradeHandler) ReportCard(c *gin.Context) {
	termID := c.Query("term_id")
	classID := c.Query("class_id")
	if termID == "" || classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id and class_id are required"))
		return
	}
	card, err := h.grades.ReportCard(c.Request.Context(), termID, classID, c.Param("student_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card)
}
