package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/schoolstack/learnnow-backend/internal/http/response"
	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/services"
)

type ImageHandler struct {
	log                *logger.Logger
	imageSearchService services.ImageSearchService
}

func NewImageHandler(log *logger.Logger, imageSearchService services.ImageSearchService) *ImageHandler {
	return &ImageHandler{
		log:                log.With("handler", "ImageHandler"),
		imageSearchService: imageSearchService,
	}
}

func (h *ImageHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		response.RespondError(c, apierr.Validation("query", "is required"))
		return
	}
	urls, err := h.imageSearchService.Search(c.Request.Context(), query)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"images": urls})
}
