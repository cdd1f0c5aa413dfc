// Package illustration превращает сегмент истории в сохраненную иллюстрацию.
package illustration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyforge-server/internal/config"
	"storyforge-server/internal/prompt"
)

// ErrEmptySegment - вызов без текста сегмента; ошибка клиента, провайдер
// изображений при этом не вызывается.
var ErrEmptySegment = errors.New("story segment is required")

// ErrImageGenerationFailed - ошибка при генерации изображения провайдером.
var ErrImageGenerationFailed = errors.New("image generation failed")

// ErrImageSaveFailed - ошибка при сохранении файла иллюстрации.
var ErrImageSaveFailed = errors.New("image save failed")

// Service определяет интерфейс генерации и сохранения иллюстраций.
type Service interface {
	// Illustrate генерирует иллюстрацию к сегменту, сохраняет ее под
	// уникальным именем и возвращает путь для последующего чтения.
	Illustrate(ctx context.Context, segmentText string) (string, error)
}

type serviceImpl struct {
	logger         *zap.Logger
	client         *http.Client
	baseURL        string
	ratio          string
	savePath       string // Директория для сохранения файлов
	publicBasePath string // Базовый путь, по которому файлы читаются обратно
}

// NewService создает новый экземпляр serviceImpl.
func NewService(logger *zap.Logger, cfg config.ImageConfig) (Service, error) {
	if cfg.SavePath == "" {
		return nil, errors.New("image save path (IMAGE_SAVE_PATH) is not configured")
	}
	if cfg.PublicBasePath == "" {
		return nil, errors.New("image public base path (IMAGE_PUBLIC_BASE_PATH) is not configured")
	}

	return &serviceImpl{
		logger: logger,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL:        cfg.BaseURL,
		ratio:          cfg.Ratio,
		savePath:       cfg.SavePath,
		publicBasePath: cfg.PublicBasePath,
	}, nil
}

// imageAPIRequest - структура запроса к серверу генерации изображений.
type imageAPIRequest struct {
	Prompt string `json:"prompt"`
	Ratio  string `json:"ratio"`
}

func (s *serviceImpl) Illustrate(ctx context.Context, segmentText string) (string, error) {
	if strings.TrimSpace(segmentText) == "" {
		return "", ErrEmptySegment
	}

	log := s.logger.With(zap.Int("segment_chars", len(segmentText)))
	log.Info("Generating illustration for story segment...")

	fullPrompt := prompt.BuildIllustrationPrompt(segmentText)
	log.Debug("Full prompt for image API", zap.String("prompt", fullPrompt))

	// 1. Вызов API генерации изображений
	imageData, err := s.callImageAPI(ctx, fullPrompt)
	if err != nil {
		log.Error("Image API call failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(imageData) == 0 {
		log.Error("Image API returned empty image data")
		return "", fmt.Errorf("%w: API returned empty data", ErrImageGenerationFailed)
	}
	log.Info("Image data received", zap.Int("size_bytes", len(imageData)))

	// 2. Сохранение изображения в файл под уникальным именем.
	// UUID вместо общего счетчика: имена не пересекаются и при конкурентных
	// запросах, координация между ними не нужна.
	fileName := fmt.Sprintf("illustration_%s.png", uuid.NewString())

	if err := os.MkdirAll(s.savePath, 0o755); err != nil {
		log.Error("Failed to create illustrations directory", zap.String("path", s.savePath), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageSaveFailed, err)
	}

	filePath := filepath.Join(s.savePath, fileName)
	if err := os.WriteFile(filePath, imageData, 0o644); err != nil {
		log.Error("Failed to save image to file", zap.String("path", filePath), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrImageSaveFailed, err)
	}
	log.Info("Illustration saved", zap.String("path", filePath))

	// 3. Формируем путь, по которому файл отдается read-only эндпоинтом
	imageURL := path.Join(s.publicBasePath, fileName)
	log.Info("Illustration URL generated", zap.String("url", imageURL))

	return imageURL, nil
}

// callImageAPI - вызывает сервер генерации изображений и возвращает сырые байты.
func (s *serviceImpl) callImageAPI(ctx context.Context, promptText string) ([]byte, error) {
	log := s.logger.With(zap.String("api_url", s.baseURL))

	reqBodyBytes, err := json.Marshal(imageAPIRequest{
		Prompt: promptText,
		Ratio:  s.ratio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpointURL := s.baseURL + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")

	log.Debug("Sending request to image API", zap.String("url", endpointURL))
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Error("Image API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", bodyBytes),
		)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body: %w", readErr)
	}

	return bodyBytes, nil
}
