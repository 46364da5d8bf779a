package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docuvoice/backend/internal/api/dto"
	"github.com/docuvoice/backend/internal/clients"
)

// Upload handles POST /api/v1/files
// Thin proxy: one multipart file in, one object-storage write out.
func (h *FileHandler) Upload(c *gin.Context) {
	userID := c.PostForm("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id is required",
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "file is required",
		})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read upload",
		})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read upload",
		})
		return
	}

	key := fmt.Sprintf("%s/%s", userID, path.Base(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := h.store.PutObject(c.Request.Context(), h.uploadBucket, key, data, contentType); err != nil {
		h.logger.Error("Failed to store upload",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to store upload",
		})
		return
	}

	h.logger.Info("File uploaded",
		slog.String("key", key),
		slog.Int("size", len(data)),
	)

	c.JSON(http.StatusCreated, dto.UploadResponse{
		Bucket: h.uploadBucket,
		Key:    key,
	})
}

// Download handles GET /api/v1/files/*key
func (h *FileHandler) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "key is required",
		})
		return
	}

	data, err := h.store.GetObject(c.Request.Context(), h.uploadBucket, key)
	if err != nil {
		if errors.Is(err, clients.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "File not found",
			})
			return
		}
		h.logger.Error("Failed to fetch object",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to fetch file",
		})
		return
	}

	c.Data(http.StatusOK, "application/octet-stream", data)
}
