package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storyforge-server/internal/story"
)

// startStory обрабатывает POST /startStory: профиль читателя и жанр на входе,
// первый сегмент истории на выходе.
func (h *Handler) startStory(c *gin.Context) {
	var req startStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	segment, err := h.stories.StartStory(c.Request.Context(), story.StartParams{
		Name:   req.Name,
		Age:    int(req.Age),
		Gender: req.Gender,
		Genre:  req.Genre,
	})
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate story"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": segment})
}

// continueStory обрабатывает POST /continueStory: предыдущий сегмент и ответ
// читателя на входе, следующий сегмент на выходе. Вся непрерывность истории
// приходит в теле запроса, на сервере сессии нет.
func (h *Handler) continueStory(c *gin.Context) {
	var req continueStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	segment, err := h.stories.ContinueStory(c.Request.Context(), story.ContinueParams{
		UserResponse:  req.UserResponse,
		PreviousStory: req.PreviousStory,
		Age:           int(req.Age),
	})
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate story"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"story": segment})
}
