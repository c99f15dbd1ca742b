package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vina-edu/academic-api/internal/service"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
	"github.com/vina-edu/academic-api/pkg/response"
)

// SubmissionHandler exposes the distribution pipeline endpoints.
type SubmissionHandler struct {
	submissions *service.SubmissionService
}

// NewSubmissionHandler constructs handler.
func NewSubmissionHandler(submissions *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

type submitClassRequest struct {
	TermID  string `json:"term_id" binding:"required"`
	ClassID string `json:"class_id" binding:"required"`
	Reason  string `json:"reason"`
}

type broadcastRequest struct {
	TermID  string `json:"term_id" binding:"required"`
	ClassID string `json:"class_id" binding:"required"`
}

// SubmitToHomeroom godoc
// @Summary Distribute class grades to homeroom teachers
// @Description Fans out per student; failures are reported per student without aborting the batch.
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body submitClassRequest true "Submission payload"
// @Success 200 {object} response.Envelope
// @Router /submissions/homeroom [post]
func (h *SubmissionHandler) SubmitToHomeroom(c *gin.Context) {
	var req submitClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.submissions.SubmitClassToHomeroom(c.Request.Context(), actorFromContext(c), req.TermID, req.ClassID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// SubmitToParents godoc
// @Summary Broadcast report cards to guardians
// @Description Refused with 412 while any student in the class is unsubmitted to homeroom.
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body broadcastRequest true "Broadcast payload"
// @Success 200 {object} response.Envelope
// @Router /submissions/parents [post]
func (h *SubmissionHandler) SubmitToParents(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.submissions.SubmitToParents(c.Request.Context(), actorFromContext(c), req.TermID, req.ClassID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ListClass godoc
// @Summary List submission records for a class
// @Tags Submissions
// @Produce json
// @Param term_id query string true "Term ID"
// @Param class_id query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) ListClass(c *gin.Context) {
	termID := c.Query("term_id")
	classID := c.Query("class_id")
	if termID == "" || classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id and class_id are required"))
		return
	}
	records, err := h.submissions.ListClassSubmissions(c.Request.Context(), termID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// GetStudent godoc
// @Summary Get one student's submission record
// @Tags Submissions
// @Produce json
// @Param term_id query string true "Term ID"
// @Param student_id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/students/{student_id} [get]
func (h *SubmissionHandler) GetStudent(c *gin.Context) {
	termID := c.Query("term_id")
	if termID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id is required"))
		return
	}
	record, err := h.submissions.GetSubmission(c.Request.Context(), termID, c.Param("student_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if record == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no submission record"))
		return
	}
	response.JSON(c, http.StatusOK, record)
}
