// Package story реализует протокол ходов интерактивной истории.
//
// Сервер не хранит сессию: каждый запрос несет в себе все, что нужно для
// следующего хода (профиль читателя либо предыдущий сегмент и ответ), поэтому
// два запроса с одинаковым телом независимы и воспроизводимы с точностью до
// недетерминизма провайдера.
package story

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storyforge-server/internal/generation"
	"storyforge-server/internal/prompt"
)

// StartParams - параметры первого хода истории.
type StartParams struct {
	Name   string
	Age    int // 0 означает неизвестный возраст, тон подбирается безопасный
	Gender string
	Genre  string
}

// ContinueParams - параметры продолжения: ровно один предыдущий сегмент
// и ответ читателя на его вопрос.
type ContinueParams struct {
	UserResponse  string
	PreviousStory string
	Age           int
}

// Service определяет протокол ходов: start и continue, оба без состояния
// на сервере.
type Service interface {
	// StartStory генерирует первый сегмент истории для читателя.
	StartStory(ctx context.Context, p StartParams) (string, error)
	// ContinueStory генерирует следующий сегмент по предыдущему сегменту
	// и ответу читателя.
	ContinueStory(ctx context.Context, p ContinueParams) (string, error)
}

type serviceImpl struct {
	ai     generation.AIClient
	model  string // имя модели, только для логов и метрик
	logger *zap.Logger
}

// NewService создает сервис генерации истории поверх AI клиента.
func NewService(ai generation.AIClient, model string, logger *zap.Logger) Service {
	return &serviceImpl{ai: ai, model: model, logger: logger}
}

func (s *serviceImpl) StartStory(ctx context.Context, p StartParams) (string, error) {
	promptText := prompt.BuildOpeningPrompt(prompt.ReaderProfile{
		Name:   p.Name,
		Age:    p.Age,
		Gender: p.Gender,
	}, p.Genre)

	return s.generateSegment(ctx, "startStory", promptText)
}

func (s *serviceImpl) ContinueStory(ctx context.Context, p ContinueParams) (string, error) {
	promptText := prompt.BuildContinuationPrompt(p.PreviousStory, p.UserResponse, p.Age)

	return s.generateSegment(ctx, "continueStory", promptText)
}

// generateSegment выполняет один ход: открывает стрим провайдера, собирает
// фрагменты в готовый сегмент и отдает его целиком. Частичный текст при
// обрыве стрима не возвращается.
func (s *serviceImpl) generateSegment(ctx context.Context, operation, promptText string) (string, error) {
	log := s.logger.With(
		zap.String("operation", operation),
		zap.String("model", s.model),
	)

	start := time.Now()

	stream, err := s.ai.StreamStory(ctx, promptText)
	if err != nil {
		log.Error("Failed to open generation stream", zap.Error(err))
		return "", err
	}
	defer stream.Close()

	segment, err := generation.Aggregate(stream)
	if err != nil {
		log.Error("Generation stream failed mid-read", zap.Error(err))
		generation.RecordStreamFailure(s.model)
		return "", err
	}

	duration := time.Since(start)
	generation.RecordStreamSuccess(s.model, duration, promptText, segment)
	log.Info("Story segment generated",
		zap.Duration("duration", duration),
		zap.Int("segment_chars", len(segment)),
	)

	return segment, nil
}
