package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/schoolstack/learnnow-backend/internal/http/response"
	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/services"
)

type ModuleHandler struct {
	log                 *logger.Logger
	moduleService       services.ModuleService
	userLearningService services.UserLearningService
}

func NewModuleHandler(log *logger.Logger, moduleService services.ModuleService, userLearningService services.UserLearningService) *ModuleHandler {
	return &ModuleHandler{
		log:                 log.With("handler", "ModuleHandler"),
		moduleService:       moduleService,
		userLearningService: userLearningService,
	}
}

type moduleRequest struct {
	Title       string      `json:"title" binding:"required"`
	Description string      `json:"description" binding:"required"`
	GradeID     uuid.UUID   `json:"gradeId" binding:"required"`
	SubjectID   uuid.UUID   `json:"subjectId" binding:"required"`
	ImageURL    string      `json:"imageUrl"`
	TagIDs      []uuid.UUID `json:"tagIds"`
	ResourceIDs []uuid.UUID `json:"resourceIds"`
}

func (r moduleRequest) toInput() services.ModuleInput {
	return services.ModuleInput{
		Title:       r.Title,
		Description: r.Description,
		GradeID:     r.GradeID,
		SubjectID:   r.SubjectID,
		ImageURL:    r.ImageURL,
		TagIDs:      r.TagIDs,
		ResourceIDs: r.ResourceIDs,
	}
}

func (h *ModuleHandler) List(c *gin.Context) {
	filter, err := moduleFilterFromQuery(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	modules, svcErr := h.moduleService.Query(c.Request.Context(), filter)
	if svcErr != nil {
		response.RespondError(c, svcErr)
		return
	}
	response.RespondOK(c, gin.H{"learningModules": modules})
}

func (h *ModuleHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	module, err := h.moduleService.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"learningModule": module})
}

func (h *ModuleHandler) Create(c *gin.Context) {
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("body", err.Error()))
		return
	}
	module, err := h.moduleService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"learningModule": module})
}

func (h *ModuleHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("body", err.Error()))
		return
	}
	module, err := h.moduleService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"learningModule": module})
}

func (h *ModuleHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.moduleService.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

type membershipRequest struct {
	ResourceIDs []uuid.UUID `json:"resourceIds"`
}

// SetMembership replaces the module's resource list wholesale.
func (h *ModuleHandler) SetMembership(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req membershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("body", err.Error()))
		return
	}
	if err := h.moduleService.SetResourceMembership(c.Request.Context(), id, req.ResourceIDs); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *ModuleHandler) Upvote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userLearningService.SetModuleVote(c.Request.Context(), id, true); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *ModuleHandler) Downvote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userLearningService.SetModuleVote(c.Request.Context(), id, false); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *ModuleHandler) ValidateTitle(c *gin.Context) {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		response.RespondError(c, apierr.Validation("title", "is required"))
		return
	}
	excludeID := uuid.Nil
	if raw := c.Query("excludeId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, apierr.Validation("excludeId", "must be a valid uuid"))
			return
		}
		excludeID = parsed
	}
	available, err := h.moduleService.ValidateTitle(c.Request.Context(), title, excludeID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"available": available})
}

func moduleFilterFromQuery(c *gin.Context) (services.ModuleFilter, *apierr.Error) {
	var filter services.ModuleFilter
	var err *apierr.Error
	if filter.GradeIDs, err = queryUUIDs(c, "gradeId"); err != nil {
		return filter, err
	}
	if filter.SubjectIDs, err = queryUUIDs(c, "subjectId"); err != nil {
		return filter, err
	}
	if filter.TagIDs, err = queryUUIDs(c, "tagId"); err != nil {
		return filter, err
	}
	if raw := c.Query("createdBy"); raw != "" {
		parsed, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return filter, apierr.Validation("createdBy", "must be a valid uuid")
		}
		filter.CreatedBy = parsed
	}
	filter.SearchText = strings.TrimSpace(c.Query("searchText"))
	if raw := c.Query("page"); raw != "" {
		page, parseErr := strconv.Atoi(raw)
		if parseErr != nil || page < 1 {
			return filter, apierr.Validation("page", "must be a positive integer")
		}
		filter.Page = page
	}
	return filter, nil
}
