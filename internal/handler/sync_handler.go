package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vina-edu/academic-api/internal/models"
	"github.com/vina-edu/academic-api/internal/service"
	appErrors "github.com/vina-edu/academic-api/pkg/errors"
	"github.com/vina-edu/academic-api/pkg/response"
)

// SyncHandler exposes report staleness detection and reconciliation.
type SyncHandler struct {
	sync *service.SyncService
}

// NewSyncHandler constructs handler.
func NewSyncHandler(sync *service.SyncService) *SyncHandler {
	return &SyncHandler{sync: sync}
}

type resyncRequest struct {
	TermID  string `json:"term_id" binding:"required"`
	ClassID string `json:"class_id" binding:"required"`
}

// Status godoc
// @Summary Check whether distributed reports are stale
// @Tags Sync
// @Produce json
// @Param term_id query string true "Term ID"
// @Param class_id query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	scope := models.SyncScope{TermID: c.Query("term_id"), ClassID: c.Query("class_id")}
	if scope.TermID == "" || scope.ClassID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term_id and class_id are required"))
		return
	}
	status, err := h.sync.CheckSyncStatus(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}

// ForceResync godoc
// @Summary Advance the reconciliation mark for a scope
// @Tags Sync
// @Accept json
// @Produce json
// @Param payload body resyncRequest true "Scope payload"
// @Success 200 {object} response.Envelope
// @Router /sync/resync [post]
func (h *SyncHandler) ForceResync(c *gin.Context) {
	var req resyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scope := models.SyncScope{TermID: req.TermID, ClassID: req.ClassID}
	status, err := h.sync.ForceResync(c.Request.Context(), actorFromContext(c), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status)
}
