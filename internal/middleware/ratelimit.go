package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterSweepInterval = 10 * time.Minute
	limiterStaleAfter    = 30 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters - потокобезопасное хранилище лимитеров по IP. Ключ приходит
// от клиента, поэтому записи без недавней активности вычищаются: иначе перебор
// адресов раздувает карту без предела.
type clientLimiters struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rps     rate.Limit
	burst   int
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		entries: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// get возвращает лимитер клиента, создавая его при первом обращении,
// и обновляет отметку последней активности.
func (l *clientLimiters) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// sweep удаляет записи, не проявлявшие активности дольше staleAfter.
func (l *clientLimiters) sweep(now time.Time, staleAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for ip, entry := range l.entries {
		if now.Sub(entry.lastSeen) > staleAfter {
			delete(l.entries, ip)
		}
	}
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// rateLimitExempt - пути, не тратящие ресурсы провайдера: служебные эндпоинты
// и выдача уже сохраненных иллюстраций.
func rateLimitExempt(path string) bool {
	if path == "/health" || path == "/metrics" {
		return true
	}
	return strings.HasPrefix(path, "/illustrations/")
}

// PerClientRateLimiter ограничивает частоту запросов по IP клиента.
// Хранилище лимитеров в памяти: сервис одноэкземплярный и не держит
// внешнего состояния, Redis здесь был бы лишним. Устаревшие записи
// вычищает фоновая горутина.
func PerClientRateLimiter(rps float64, burst int, log *zap.Logger) gin.HandlerFunc {
	limiters := newClientLimiters(rps, burst)

	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for now := range ticker.C {
			limiters.sweep(now, limiterStaleAfter)
		}
	}()

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if rateLimitExempt(path) {
			c.Next()
			return
		}

		ip := c.ClientIP()
		if !limiters.get(ip, time.Now()).Allow() {
			log.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}

		c.Next()
	}
}
