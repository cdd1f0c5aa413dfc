package handler

import (
	"encoding/json"

	"storyforge-server/internal/prompt"
)

// flexibleAge принимает возраст и числом, и строкой. Нечисловое значение не
// роняет запрос: возраст приводится к нулю, а билдер промптов подставляет
// безопасный детский тон.
type flexibleAge int

func (a *flexibleAge) UnmarshalJSON(data []byte) error {
	*a = flexibleAge(prompt.CoerceAge(string(data)))
	return nil
}

// startStoryRequest - тело запроса POST /startStory.
type startStoryRequest struct {
	Name   string      `json:"name"`
	Age    flexibleAge `json:"age"`
	Gender string      `json:"gender"`
	Genre  string      `json:"genre"`
	// ReadStory - флаг презентационного слоя (озвучка на клиенте);
	// принимается в любом виде и на генерацию не влияет.
	ReadStory json.RawMessage `json:"readStory"`
}

// continueStoryRequest - тело запроса POST /continueStory.
type continueStoryRequest struct {
	UserResponse  string          `json:"userResponse"`
	PreviousStory string          `json:"previousStory"`
	ReadStory     json.RawMessage `json:"readStory"`
	Age           flexibleAge     `json:"age"`
}

// illustrateRequest - тело запроса POST /illustrate.
type illustrateRequest struct {
	Segment string `json:"segment"`
}
