package handlers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/schoolstack/learnnow-backend/internal/http/response"
	"github.com/schoolstack/learnnow-backend/internal/platform/apierr"
	"github.com/schoolstack/learnnow-backend/internal/platform/logger"
	"github.com/schoolstack/learnnow-backend/internal/services"
)

type FileHandler struct {
	log           *logger.Logger
	bucketService services.BucketService
}

func NewFileHandler(log *logger.Logger, bucketService services.BucketService) *FileHandler {
	return &FileHandler{
		log:           log.With("handler", "FileHandler"),
		bucketService: bucketService,
	}
}

// Upload stores a multipart attachment and returns its public URL plus the
// storage key the catalog should keep.
func (h *FileHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, apierr.Validation("file", "a multipart file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, apierr.Storage(err))
		return
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := fmt.Sprintf("attachments/%s%s", uuid.New().String(), ext)
	contentType := fileHeader.Header.Get("Content-Type")

	url, err := h.bucketService.Upload(c.Request.Context(), key, src, contentType)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{
		"url":      url,
		"key":      key,
		"fileName": fileHeader.Filename,
	})
}

// Delete drops an uploaded attachment that never made it onto a resource,
// or one an editor replaced.
func (h *FileHandler) Delete(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		response.RespondError(c, apierr.Validation("key", "is required"))
		return
	}
	if err := h.bucketService.Delete(c.Request.Context(), key); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondNoContent(c)
}

// Download resolves a storage key to a short-lived signed URL.
func (h *FileHandler) Download(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		response.RespondError(c, apierr.Validation("key", "is required"))
		return
	}
	url, err := h.bucketService.DownloadURL(c.Request.Context(), key)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"url": url})
}
