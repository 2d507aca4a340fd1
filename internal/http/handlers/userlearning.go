package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/schoolstack/learnnow-backend/internal/http/response"
	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/services"
)

// UserLearningHandler serves the caller's personal catalog view under /me.
type UserLearningHandler struct {
	log                 *logger.Logger
	userLearningService services.UserLearningService
}

func NewUserLearningHandler(log *logger.Logger, userLearningService services.UserLearningService) *UserLearningHandler {
	return &UserLearningHandler{
		log:                 log.With("handler", "UserLearningHandler"),
		userLearningService: userLearningService,
	}
}

type saveRequest struct {
	ID uuid.UUID `json:"id" binding:"required"`
}

func (h *UserLearningHandler) ListResources(c *gin.Context) {
	isSaved := strings.EqualFold(c.Query("isSaved"), "true")
	searchText := strings.TrimSpace(c.Query("searchText"))
	resources, err := h.userLearningService.QueryResources(c.Request.Context(), searchText, isSaved)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"resources": resources})
}

func (h *UserLearningHandler) SaveResource(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("id", "is required"))
		return
	}
	if err := h.userLearningService.SetResourceSaved(c.Request.Context(), req.ID, true); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *UserLearningHandler) UnsaveResource(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userLearningService.SetResourceSaved(c.Request.Context(), id, false); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *UserLearningHandler) ListModules(c *gin.Context) {
	isSaved := strings.EqualFold(c.Query("isSaved"), "true")
	searchText := strings.TrimSpace(c.Query("searchText"))
	modules, err := h.userLearningService.QueryModules(c.Request.Context(), searchText, isSaved)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"learningModules": modules})
}

func (h *UserLearningHandler) SaveModule(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("id", "is required"))
		return
	}
	if err := h.userLearningService.SetModuleSaved(c.Request.Context(), req.ID, true); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *UserLearningHandler) UnsaveModule(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userLearningService.SetModuleSaved(c.Request.Context(), id, false); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}
