// Package prompt собирает текстовые промпты для генерации истории и иллюстраций.
// Все функции чистые: сервер не хранит состояние сессии, поэтому вся
// непрерывность повествования достигается повторной вставкой предыдущего
// сегмента в промпт продолжения.
package prompt

import (
	"fmt"
	"strconv"
	"strings"
)

// ReaderProfile описывает читателя; передается клиентом в каждом запросе.
type ReaderProfile struct {
	Name   string
	Age    int
	Gender string
}

// CoerceAge приводит возраст из произвольного JSON-значения (число или строка)
// к целому. Нечисловой или неположительный возраст дает 0 — билдер промптов
// в этом случае подставляет тон "young child" вместо конкретного возраста.
func CoerceAge(raw string) int {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	// parseInt-семантика: "7.9" и 7.9 дают 7
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	age := int(f)
	if age < 1 {
		return 0
	}
	return age
}

// ageDescriptor возвращает "<N>-year-old" либо "young" для неизвестного возраста.
func ageDescriptor(age int) string {
	if age < 1 {
		return "young"
	}
	return strconv.Itoa(age) + "-year-old"
}

// readersDescriptor возвращает "children aged <N>" либо "young children".
func readersDescriptor(age int) string {
	if age < 1 {
		return "young children"
	}
	return "children aged " + strconv.Itoa(age)
}

// BuildOpeningPrompt собирает промпт первого сегмента истории.
// Промпт фиксирует возрастное ограничение, жанр, героя и контракт формата:
// сегмент заканчивается ровно одним вопросом с вариантами ответа,
// без комментариев и преамбул.
func BuildOpeningPrompt(profile ReaderProfile, genre string) string {
	return fmt.Sprintf(`Generate the start of a %s story for a %s reader.
The main character is a %s named %s. The story should be appropriate in length
and vocabulary for a %s child to read. This will be a choose-your-own style
story, so after an initial setup, end the story segment with a multiple choice question. We
will continue the story with the child's response. Return just the story and the question, as text not json.
Do not add commentary or any other text besides the story segment and the questions.
Begin the story now:`,
		genre, ageDescriptor(profile.Age), profile.Gender, profile.Name, ageDescriptor(profile.Age))
}

// BuildContinuationPrompt собирает промпт продолжения: предыдущий сегмент
// и ответ читателя вставляются дословно.
func BuildContinuationPrompt(previousStory, userResponse string, age int) string {
	return fmt.Sprintf(`Here's the story so far:
%s

The user responded: "%s"
Continue the story based on this response. Remember to keep the story appropriate for and
readable by %s and to end with another multiple choice question for the reader. Do not include any text other
than the story continuation. Don't preface the story segment or provide guidance or commentary.
Continue the story now:`,
		previousStory, userResponse, readersDescriptor(age))
}

// BuildIllustrationPrompt собирает промпт для генерации иллюстрации к сегменту.
func BuildIllustrationPrompt(segment string) string {
	return "Create an illustration for this scene from a children's story: " + segment
}
