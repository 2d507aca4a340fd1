package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/schoolstack/learnnow-backend/internal/http/response"
	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/services"
)

// TaxonomyHandler serves the grade, subject and tag endpoints. The three
// entities share one wire shape so they share one handler.
type TaxonomyHandler struct {
	log             *logger.Logger
	taxonomyService services.TaxonomyService
}

func NewTaxonomyHandler(log *logger.Logger, taxonomyService services.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{
		log:             log.With("handler", "TaxonomyHandler"),
		taxonomyService: taxonomyService,
	}
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type batchDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1"`
}

func (h *TaxonomyHandler) ListGrades(c *gin.Context) {
	grades, err := h.taxonomyService.ListGrades(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grades": grades})
}

func (h *TaxonomyHandler) CreateGrade(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("name", "is required"))
		return
	}
	grade, err := h.taxonomyService.CreateGrade(c.Request.Context(), req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"grade": grade})
}

func (h *TaxonomyHandler) UpdateGrade(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("name", "is required"))
		return
	}
	grade, err := h.taxonomyService.UpdateGrade(c.Request.Context(), id, req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"grade": grade})
}

func (h *TaxonomyHandler) DeleteGrades(c *gin.Context) {
	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("ids", "at least one id is required"))
		return
	}
	if err := h.taxonomyService.DeleteGrades(c.Request.Context(), req.IDs); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *TaxonomyHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.taxonomyService.ListSubjects(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"subjects": subjects})
}

func (h *TaxonomyHandler) CreateSubject(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("name", "is required"))
		return
	}
	subject, err := h.taxonomyService.CreateSubject(c.Request.Context(), req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"subject": subject})
}

func (h *TaxonomyHandler) UpdateSubject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("name", "is required"))
		return
	}
	subject, err := h.taxonomyService.UpdateSubject(c.Request.Context(), id, req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"subject": subject})
}

func (h *TaxonomyHandler) DeleteSubjects(c *gin.Context) {
	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("ids", "at least one id is required"))
		return
	}
	if err := h.taxonomyService.DeleteSubjects(c.Request.Context(), req.IDs); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (h *TaxonomyHandler) ListTags(c *gin.Context) {
	tags, err := h.taxonomyService.ListTags(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tags": tags})
}

func (h *TaxonomyHandler) CreateTag(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("name", "is required"))
		return
	}
	tag, err := h.taxonomyService.CreateTag(c.Request.Context(), req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"tag": tag})
}

func (h *TaxonomyHandler) UpdateTag(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("name", "is required"))
		return
	}
	tag, err := h.taxonomyService.UpdateTag(c.Request.Context(), id, req.Name)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tag": tag})
}

func (h *TaxonomyHandler) DeleteTags(c *gin.Context) {
	var req batchDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apierr.Validation("ids", "at least one id is required"))
		return
	}
	if err := h.taxonomyService.DeleteTags(c.Request.Context(), req.IDs); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// pathID parses the :id segment, writing the validation failure itself so
// handlers can bail with a bare return.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, apierr.Validation("id", "must be a valid uuid"))
		return uuid.Nil, false
	}
	return id, true
}
