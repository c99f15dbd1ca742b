package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vina-edu/academic-api/internal/models"
	"github.com/vina-edu/academic-api/internal/service"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
	"github.com/vina-edu/academic-api/pkg/response"
)

// AuditHandler exposes the grade change ledger and its review loop.
type AuditHandler struct {
	audits *service.AuditService
}

// NewAuditHandler constructs handler.
func NewAuditHandler(audits *service.AuditService) *AuditHandler {
	return &AuditHandler{audits: audits}
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

// History godoc
// @Summary List a student's grade change history
// @Tags Audits
// @Produce json
// @Param student_id path string true "Student ID"
// @Param term_id query string false "Term ID"
// @Param status query string false "Review status"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /audits/students/{student_id} [get]
func (h *AuditHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	filter := models.AuditFilter{
		StudentID: c.Param("student_id"),
		TermID:    c.Query("term_id"),
		Status:    models.AuditStatus(c.Query("status")),
		Limit:     limit,
		Offset:    offset,
	}
	entries, err := h.audits.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// ListPending godoc
// @Summary List grade changes awaiting review
// @Tags Audits
// @Produce json
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audits/pending [get]
func (h *AuditHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.audits.ListPending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}

// Review godoc
// @Summary Approve or reject a pending grade change
// @Description Rejection restores the grade cell to its prior value.
// @Tags Audits
// @Accept json
// @Produce json
// @Param id path string true "Audit entry ID"
// @Param payload body reviewRequest true "Review decision"
// @Success 200 {object} response.Envelope
// @Router /audits/{id}/review [post]
func (h *AuditHandler) Review(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.audits.Review(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Approve)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// VerifyConsistency godoc
// @Summary Cross-check grade cells against the ledger
// @Tags Audits
// @Produce json
// @Param term_id query string true "Term ID"
// @Param class_id query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /audits/consistency [get]
func (h *AuditHandler) VerifyConsistency(c *gin.Context) {
	termID := c.Query("term_id")
	classID := c.Query("class_id")
	if termID == "" || classID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id and class_id are required"))
		return
	}
	issues, err := h.audits.VerifyConsistency(c.Request.Context(), classID, termID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"issues": issues, "consistent": len(issues) == 0})
}
