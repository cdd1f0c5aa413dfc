package generation

import (
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyforge_generation_requests_total",
			Help: "Total number of story generation requests to the AI provider.",
		},
		[]string{"model", "status"},
	)
	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyforge_generation_duration_seconds",
			Help:    "Histogram of story generation durations (stream open to last token).",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	generationPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyforge_generation_prompt_tokens",
			Help:    "Histogram of estimated prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 20),
		},
		[]string{"model"},
	)
	generationCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyforge_generation_completion_tokens",
			Help:    "Histogram of estimated completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"model"},
	)
)

// RecordStreamSuccess фиксирует метрики успешно завершенной генерации.
// Количество токенов оценивается токенизатором cl100k_base: через TokenStream
// usage-блок провайдера не проходит, а для не-OpenAI моделей точного
// токенизатора все равно нет.
func RecordStreamSuccess(model string, duration time.Duration, promptText, completion string) {
	generationRequestsTotal.With(prometheus.Labels{"model": model, "status": "success"}).Inc()
	generationDuration.With(prometheus.Labels{"model": model}).Observe(duration.Seconds())

	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return
	}
	generationPromptTokens.With(prometheus.Labels{"model": model}).
		Observe(float64(len(tke.Encode(promptText, nil, nil))))
	generationCompletionTokens.With(prometheus.Labels{"model": model}).
		Observe(float64(len(tke.Encode(completion, nil, nil))))
}

// RecordStreamFailure фиксирует сбой генерации. Стадия сбоя не различается:
// колбэчные клиенты сообщают об ошибках подключения теми же путями, что и об
// обрывах чтения.
func RecordStreamFailure(model string) {
	generationRequestsTotal.With(prometheus.Labels{"model": model, "status": "error"}).Inc()
}
