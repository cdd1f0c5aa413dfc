// Package handler реализует HTTP поверхность сервиса: три операции генерации
// и read-only выдачу сохраненных иллюстраций.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyforge-server/internal/illustration"
	"storyforge-server/internal/story"
)

// Handler обслуживает HTTP API генерации историй.
type Handler struct {
	stories       story.Service
	illustrations illustration.Service
	imageDir      string // Директория с сохраненными иллюстрациями
	logger        *zap.Logger
}

// NewHandler создает новый экземпляр обработчика.
func NewHandler(stories story.Service, illustrations illustration.Service, imageDir string, logger *zap.Logger) *Handler {
	return &Handler{
		stories:       stories,
		illustrations: illustrations,
		imageDir:      imageDir,
		logger:        logger,
	}
}

// RegisterRoutes регистрирует все маршруты API на роутере.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.POST("/startStory", h.startStory)
	router.POST("/continueStory", h.continueStory)
	router.POST("/illustrate", h.illustrate)
	router.GET("/illustrations/:filename", h.getIllustration)
	router.GET("/health", h.health)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
