package handler

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"storyforge-server/internal/illustration"
)

// illustrate обрабатывает POST /illustrate: генерирует иллюстрацию к сегменту
// и возвращает путь для ее чтения.
func (h *Handler) illustrate(c *gin.Context) {
	var req illustrateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Segment) == "" {
		// Пустой сегмент - ошибка клиента, провайдер не вызывается
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Story segment is required"})
		return
	}

	imageURL, err := h.illustrations.Illustrate(c.Request.Context(), req.Segment)
	if err != nil {
		if errors.Is(err, illustration.ErrEmptySegment) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Story segment is required"})
			return
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to generate illustration",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"imageUrl": imageURL})
}

// getIllustration обрабатывает GET /illustrations/:filename - read-only выдачу
// сохраненного артефакта. Неизвестное имя дает 404.
func (h *Handler) getIllustration(c *gin.Context) {
	filename := c.Param("filename")

	// Только плоские имена: любые попытки выхода из директории - 404
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Illustration not found"})
		return
	}

	fullPath := filepath.Join(h.imageDir, filename)
	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Illustration not found"})
		return
	}

	c.Header("Content-Type", "image/png")
	c.File(fullPath)
}
