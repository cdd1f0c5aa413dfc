package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config структура для хранения всей конфигурации приложения.
type Config struct {
	AppEnv        string `env:"APP_ENV" env-default:"development"`
	Port          string `env:"PORT" env-default:"3000"`
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`
	LogEncoding   string `env:"LOG_ENCODING" env-default:"json"`
	LogOutputPath string `env:"LOG_OUTPUT_PATH" env-default:"stdout"`

	AI        AIConfig
	Image     ImageConfig
	RateLimit RateLimitConfig
}

// AIConfig конфигурация клиента генерации текста.
type AIConfig struct {
	// ClientType выбирает реализацию: "openai" (любой OpenAI-совместимый
	// эндпоинт, включая OpenRouter) или "ollama".
	ClientType string        `env:"AI_CLIENT_TYPE" env-default:"openai"`
	BaseURL    string        `env:"AI_BASE_URL" env-default:"https://openrouter.ai/api/v1"`
	APIKey     string        `env:"AI_API_KEY" env-default:""`
	Model      string        `env:"AI_MODEL" env-default:"meta-llama/llama-3.2-3b-instruct"`
	Timeout    time.Duration `env:"AI_TIMEOUT" env-default:"300s"`

	// Параметры сэмплирования, передаются провайдеру как есть.
	MaxNewTokens      int     `env:"AI_MAX_NEW_TOKENS" env-default:"1000"`
	Temperature       float64 `env:"AI_TEMPERATURE" env-default:"0.7"`
	TopP              float64 `env:"AI_TOP_P" env-default:"0.95"`
	RepetitionPenalty float64 `env:"AI_REPETITION_PENALTY" env-default:"1.15"`
}

// ImageConfig конфигурация генерации и хранения иллюстраций.
type ImageConfig struct {
	BaseURL        string `env:"IMAGE_SERVER_BASE_URL" env-default:"http://localhost:8188"`
	Timeout        int    `env:"IMAGE_SERVER_TIMEOUT_SEC" env-default:"120"` // Таймаут в секундах
	Ratio          string `env:"IMAGE_RATIO" env-default:"1:1"`
	SavePath       string `env:"IMAGE_SAVE_PATH" env-default:"public/illustrations"`
	PublicBasePath string `env:"IMAGE_PUBLIC_BASE_PATH" env-default:"/illustrations"`
}

// RateLimitConfig настройки ограничения частоты запросов по IP.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" env-default:"1"`
	Burst int     `env:"RATE_LIMIT_BURST" env-default:"5"`
}

// Load загружает конфигурацию из переменных окружения и .env файла.
func Load() *Config {
	// Загружаем .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	return &cfg
}
