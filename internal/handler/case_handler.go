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

// CaseHandler exposes disciplinary case endpoints.
type CaseHandler struct {
	cases *service.DisciplineService
}

// NewCaseHandler constructs handler.
func NewCaseHandler(cases *service.DisciplineService) *CaseHandler {
	return &CaseHandler{cases: cases}
}

type advanceCaseRequest struct {
	Status models.CaseStatus `json:"status" binding:"required"`
}

// Create godoc
// @Summary Open a disciplinary case
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body service.CreateCaseRequest true "Case payload"
// @Success 201 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	var req service.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.cases.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List disciplinary cases
// @Tags Cases
// @Produce json
// @Param student_id query string false "Student ID"
// @Param class_id query string false "Class ID"
// @Param term_id query string false "Term ID"
// @Param status query string false "Case status"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	filter := models.CaseFilter{
		StudentID: c.Query("student_id"),
		ClassID:   c.Query("class_id"),
		TermID:    c.Query("term_id"),
		Status:    models.CaseStatus(c.Query("status")),
		Limit:     limit,
		Offset:    offset,
	}
	cases, err := h.cases.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases)
}

// Get godoc
// @Summary Get one disciplinary case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	found, err := h.cases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, found)
}

// Advance godoc
// @Summary Advance a case to its next status
// @Description Transitions move forward one rung at a time; skipping or reversing is rejected.
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body advanceCaseRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/advance [post]
func (h *CaseHandler) Advance(c *gin.Context) {
	var req advanceCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	advanced, err := h.cases.Advance(c.Request.Context(), actorFromContext(c), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, advanced)
}

// Delete godoc
// @Summary Remove a disciplinary case
// @Tags Cases
// @Param id path string true "Case ID"
// @Success 204
// @Router /cases/{id} [delete]
func (h *CaseHandler) Delete(c *gin.Context) {
	if err := h.cases.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
