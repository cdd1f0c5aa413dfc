package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"storyforge-server/internal/config"
)

// ErrGenerationFailed - ошибка при генерации текста истории.
var ErrGenerationFailed = errors.New("story generation failed")

// TokenStream - ленивый конечный поток текстовых фрагментов от провайдера.
// Поток не перезапускаемый и рассчитан на одного читателя.
type TokenStream interface {
	// Recv возвращает следующий фрагмент. io.EOF означает нормальное
	// завершение потока; любая другая ошибка - сбой генерации.
	Recv() (string, error)
	// Close освобождает ресурсы потока. Безопасен после io.EOF.
	Close() error
}

// AIClient интерфейс для взаимодействия с провайдером генерации текста.
type AIClient interface {
	// StreamStory открывает потоковую генерацию по готовому промпту.
	// Делается ровно одна попытка: политика повторов - забота вызывающего.
	StreamStory(ctx context.Context, promptText string) (TokenStream, error)
}

// --- OpenAI-совместимая реализация ---

type openAIClient struct {
	client *openaigo.Client
	cfg    config.AIConfig
	logger *zap.Logger
}

func (c *openAIClient) StreamStory(ctx context.Context, promptText string) (TokenStream, error) {
	if strings.TrimSpace(promptText) == "" {
		return nil, fmt.Errorf("%w: prompt is empty", ErrGenerationFailed)
	}

	request := openaigo.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: promptText},
		},
		Stream:      true,
		MaxTokens:   c.cfg.MaxNewTokens,
		Temperature: float32(c.cfg.Temperature),
		TopP:        float32(c.cfg.TopP),
	}

	c.logger.Debug("Opening completion stream",
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_bytes", len(promptText)),
	)

	stream, err := c.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		RecordStreamFailure(c.cfg.Model)
		return nil, fmt.Errorf("%w: failed to open stream: %v", ErrGenerationFailed, err)
	}

	return &openAIStream{stream: stream}, nil
}

// openAIStream адаптирует *openai.ChatCompletionStream под TokenStream.
type openAIStream struct {
	stream *openaigo.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			// io.EOF пробрасываем как есть - это нормальное завершение
			return "", err
		}
		if len(resp.Choices) == 0 {
			// Служебные чанки без выбора (например, финальный usage) пропускаем
			continue
		}
		return resp.Choices[0].Delta.Content, nil
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

// --- Ollama реализация ---

type ollamaClient struct {
	client *api.Client
	cfg    config.AIConfig
	logger *zap.Logger
}

func newOllamaClient(cfg config.AIConfig, logger *zap.Logger) (AIClient, error) {
	// api.NewClient требует URL без суффикса /v1
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	baseURL = strings.TrimSuffix(baseURL, "/")

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &ollamaClient{
		client: api.NewClient(parsedURL, httpClient),
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (c *ollamaClient) StreamStory(ctx context.Context, promptText string) (TokenStream, error) {
	if strings.TrimSpace(promptText) == "" {
		return nil, fmt.Errorf("%w: prompt is empty", ErrGenerationFailed)
	}

	streamCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)

	req := &api.ChatRequest{
		Model:    c.cfg.Model,
		Messages: []api.Message{{Role: "user", Content: promptText}},
		Stream:   func(b bool) *bool { return &b }(true),
		Options: map[string]interface{}{
			"temperature":    c.cfg.Temperature,
			"top_p":          c.cfg.TopP,
			"num_predict":    c.cfg.MaxNewTokens,
			"repeat_penalty": c.cfg.RepetitionPenalty,
		},
	}

	st := &ollamaStream{
		chunks: make(chan string),
		done:   make(chan error, 1),
		cancel: cancel,
	}

	c.logger.Debug("Opening ollama chat stream",
		zap.String("model", c.cfg.Model),
		zap.Int("prompt_bytes", len(promptText)),
	)

	// Колбэк-интерфейс Ollama переводим в pull-модель через горутину и канал.
	go func() {
		err := c.client.Chat(streamCtx, req, func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			select {
			case st.chunks <- resp.Message.Content:
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		})
		// Ошибку публикуем ДО закрытия канала фрагментов, чтобы Recv после
		// исчерпания канала гарантированно увидел результат.
		st.done <- err
		close(st.chunks)
	}()

	return st, nil
}

// ollamaStream - TokenStream поверх колбэк-стрима Ollama.
// Рассчитан на одного читателя, как и сам TokenStream.
type ollamaStream struct {
	chunks chan string
	done   chan error
	cancel context.CancelFunc
	err    error
}

func (s *ollamaStream) Recv() (string, error) {
	chunk, ok := <-s.chunks
	if !ok {
		if s.err == nil {
			if err := <-s.done; err != nil {
				s.err = err
			} else {
				s.err = io.EOF
			}
		}
		return "", s.err
	}
	return chunk, nil
}

func (s *ollamaStream) Close() error {
	s.cancel()
	// Дочитываем канал, чтобы горутина Chat не зависла на отправке
	for range s.chunks {
	}
	return nil
}

// --- Фабрика ---

// NewAIClient создает клиент генерации в зависимости от конфигурации.
func NewAIClient(cfg config.AIConfig, logger *zap.Logger) (AIClient, error) {
	switch strings.ToLower(cfg.ClientType) {
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("AI_API_KEY is required for the openai client type")
		}
		openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
		openaiConfig.BaseURL = cfg.BaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		logger.Info("AI client initialized",
			zap.String("type", "openai"),
			zap.String("base_url", cfg.BaseURL),
			zap.String("model", cfg.Model),
			zap.Duration("timeout", cfg.Timeout),
		)
		return &openAIClient{
			client: openaigo.NewClientWithConfig(openaiConfig),
			cfg:    cfg,
			logger: logger,
		}, nil
	case "ollama":
		logger.Info("AI client initialized",
			zap.String("type", "ollama"),
			zap.String("base_url", cfg.BaseURL),
			zap.String("model", cfg.Model),
		)
		return newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI client type: %q", cfg.ClientType)
	}
}
