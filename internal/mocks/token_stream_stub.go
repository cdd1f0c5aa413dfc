package mocks

import (
	"io"
	"sync/atomic"

	"storyforge-server/internal/generation"
)

// TokenStream - скриптованный поток фрагментов для тестов: отдает фрагменты
// по порядку, после чего завершается io.EOF либо заданной ошибкой.
type TokenStream struct {
	fragments []string
	finalErr  error
	pos       int
	closed    atomic.Bool
}

// NewTokenStream создает поток из фрагментов. Если finalErr не nil, поток
// завершится этой ошибкой вместо io.EOF (имитация обрыва стрима провайдера).
func NewTokenStream(fragments []string, finalErr error) *TokenStream {
	return &TokenStream{fragments: fragments, finalErr: finalErr}
}

func (s *TokenStream) Recv() (string, error) {
	if s.pos >= len(s.fragments) {
		if s.finalErr != nil {
			return "", s.finalErr
		}
		return "", io.EOF
	}
	chunk := s.fragments[s.pos]
	s.pos++
	return chunk, nil
}

func (s *TokenStream) Close() error {
	s.closed.Store(true)
	return nil
}

// Closed сообщает, был ли поток закрыт вызывающим.
func (s *TokenStream) Closed() bool {
	return s.closed.Load()
}

var _ generation.TokenStream = (*TokenStream)(nil)
