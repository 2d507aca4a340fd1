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

type ResourceHandler struct {
	log                 *logger.Logger
	resourceService     services.ResourceService
	userLearningService services.UserLearningService
}

func NewResourceHandler(log *logger.Logger, resourceService services.ResourceService, userLearningService services.UserLearningService) *ResourceHandler {
	return &ResourceHandler{
		log:                 log.With("handler", "ResourceHandler"),
		resourceService:     resourceService,
		userLearningService: userLearningService,
	}
}

type resourceRequest struct {
	Title                 string      `json:"title" binding:"required"`
	Description           string      `json:"description" binding:"required"`
	GradeID               uuid.UUID   `json:"gradeId" binding:"required"`
	SubjectID             uuid.UUID   `json:"subjectId" binding:"required"`
	AttachmentURL         string      `json:"attachmentUrl"`
	AttachmentFileName    string      `json:"attachmentFileName"`
	AttachmentContentType string      `json:"attachmentContentType"`
	LinkURL               string      `json:"linkUrl"`
	ImageURL              string      `json:"imageUrl"`
	TagIDs                []uuid.UUID `json:"tagIds"`
}

func (r resourceRequest) toInput() services.ResourceInput {
	return services.ResourceInput{
		Title:                 r.Title,
		Description:           r.Description,
		GradeID:               r.GradeID,
		SubjectID:             r.SubjectID,
		AttachmentURL:         r.AttachmentURL,
		AttachmentFileName:    r.AttachmentFileName,
		AttachmentContentType: r.AttachmentContentType,
		LinkURL:               r.LinkURL,
		ImageURL:              r.ImageURL,
		TagIDs:                r.TagIDs,
	}
}

func (h *ResourceHandler) List(c *gin.Context) {
	filter, err := resourceFilterFromQuery(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	resources, svcErr := h.resourceService.Query(c.Request.Context(), filter)
	if svcErr != nil {
		response.RespondError(c, svcErr)
		return
	}
	response.RespondOK(c, gin.H{"resources": resources})
}

func (h *ResourceHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resource, err := h.resourceService.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"resource": resource})
}

func (h *ResourceHandler) Create(c *gin.Context) {
	var req resourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("body", err.Error()))
		return
	}
	resource, err := h.resourceService.Create(c.Request.Context(), req.toInput())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"resource": resource})
}

func (h *ResourceHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req resourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("body", err.Error()))
		return
	}
	resource, err := h.resourceService.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"resource": resource})
}

func (h *ResourceHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.resourceService.Delete(c.Request.Context(), id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *ResourceHandler) Upvote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userLearningService.SetResourceVote(c.Request.Context(), id, true); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *ResourceHandler) Downvote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.userLearningService.SetResourceVote(c.Request.Context(), id, false); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// ValidateTitle lets editors check for a duplicate before submitting.
func (h *ResourceHandler) ValidateTitle(c *gin.Context) {
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
	available, err := h.resourceService.ValidateTitle(c.Request.Context(), title, excludeID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"available": available})
}

func resourceFilterFromQuery(c *gin.Context) (services.ResourceFilter, *apierr.Error) {
	var filter services.ResourceFilter
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

func queryUUIDs(c *gin.Context, key string) ([]uuid.UUID, *apierr.Error) {
	raw := c.QueryArray(key)
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := uuid.Parse(part)
			if err != nil {
				return nil, apierr.Validation(key, "must be a valid uuid")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
