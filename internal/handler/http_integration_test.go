package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyforge-server/internal/config"
	"storyforge-server/internal/handler"
	"storyforge-server/internal/illustration"
	"storyforge-server/internal/mocks"
	"storyforge-server/internal/story"
)

var fakePNG = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 1, 2, 3}

// testEnv собирает полный HTTP стек поверх замоканного AI клиента и
// фейкового сервера генерации изображений.
type testEnv struct {
	router   *gin.Engine
	mockAI   *mocks.MockAIClient
	imageDir string
}

func newTestEnv(t *testing.T, imageStatus int, imagePayload []byte) *testEnv {
	gin.SetMode(gin.TestMode)

	imageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(imageStatus)
		_, _ = w.Write(imagePayload)
	}))
	t.Cleanup(imageSrv.Close)

	imageDir := t.TempDir()
	illustrationSvc, err := illustration.NewService(zap.NewNop(), config.ImageConfig{
		BaseURL:        imageSrv.URL,
		Timeout:        5,
		Ratio:          "1:1",
		SavePath:       imageDir,
		PublicBasePath: "/illustrations",
	})
	require.NoError(t, err)

	mockAI := mocks.NewMockAIClient(t)
	storySvc := story.NewService(mockAI, "test-model", zap.NewNop())

	router := gin.New()
	h := handler.NewHandler(storySvc, illustrationSvc, imageDir, zap.NewNop())
	h.RegisterRoutes(router)

	return &testEnv{router: router, mockAI: mockAI, imageDir: imageDir}
}

func (e *testEnv) postJSON(t *testing.T, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStartStory_EndToEnd(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	env.mockAI.On("StreamStory", mock.Anything, mock.AnythingOfType("string")).
		Return(mocks.NewTokenStream([]string{"Once ", "upon ", "a time<|eot_id|>"}, nil), nil).
		Once()

	rec := env.postJSON(t, "/startStory", `{"name":"Mira","age":7,"gender":"Girl","genre":"Ocean","readStory":true}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Once upon a time", body["story"])
	env.mockAI.AssertExpectations(t)
}

func TestStartStory_AgeAsString(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	var capturedPrompt string
	env.mockAI.On("StreamStory", mock.Anything, mock.AnythingOfType("string")).
		Return(mocks.NewTokenStream([]string{"A story."}, nil), nil).
		Once().
		Run(func(args mock.Arguments) {
			capturedPrompt = args.String(1)
		})

	rec := env.postJSON(t, "/startStory", `{"name":"Tim","age":"9","gender":"Boy","genre":"Fantasy"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, capturedPrompt, "9-year-old")
}

func TestStartStory_NonNumericAgeDoesNotCrash(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	var capturedPrompt string
	env.mockAI.On("StreamStory", mock.Anything, mock.AnythingOfType("string")).
		Return(mocks.NewTokenStream([]string{"A story."}, nil), nil).
		Once().
		Run(func(args mock.Arguments) {
			capturedPrompt = args.String(1)
		})

	rec := env.postJSON(t, "/startStory", `{"name":"Tim","age":"seven","gender":"Boy","genre":"Fantasy","readStory":"yes"}`)

	// Нечисловой возраст деградирует в безопасный тон, а не в 500
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, capturedPrompt, "young reader")
}

func TestStartStory_GenerationFailure(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	env.mockAI.On("StreamStory", mock.Anything, mock.AnythingOfType("string")).
		Return(mocks.NewTokenStream([]string{"Once "}, errors.New("upstream reset")), nil).
		Once()

	rec := env.postJSON(t, "/startStory", `{"name":"Mira","age":7,"gender":"Girl","genre":"Ocean"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Failed to generate story", body["error"])
	// Частичный текст не должен попасть в ответ
	assert.NotContains(t, rec.Body.String(), "Once")
}

func TestContinueStory_EndToEnd(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	var capturedPrompt string
	env.mockAI.On("StreamStory", mock.Anything, mock.AnythingOfType("string")).
		Return(mocks.NewTokenStream([]string{"You ", "go left."}, nil), nil).
		Once().
		Run(func(args mock.Arguments) {
			capturedPrompt = args.String(1)
		})

	rec := env.postJSON(t, "/continueStory", `{"userResponse":"left","previousStory":"...cave?","readStory":false,"age":7}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "You go left.", body["story"])
	// Контракт непрерывности
	assert.Contains(t, capturedPrompt, "...cave?")
	assert.Contains(t, capturedPrompt, "left")
}

func TestIllustrate_EndToEnd(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	rec := env.postJSON(t, "/illustrate", `{"segment":"Mira dove into the waves."}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	imageURL, ok := body["imageUrl"].(string)
	require.True(t, ok, "imageUrl must be a string")

	// Артефакт читается обратно через retrieval эндпоинт
	getReq := httptest.NewRequest(http.MethodGet, imageURL, nil)
	getRec := httptest.NewRecorder()
	env.router.ServeHTTP(getRec, getReq)

	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "image/png", getRec.Header().Get("Content-Type"))
	assert.Equal(t, fakePNG, getRec.Body.Bytes())
}

func TestIllustrate_EmptySegment(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	for _, body := range []string{`{"segment":""}`, `{}`, `{"segment":"   "}`} {
		rec := env.postJSON(t, "/illustrate", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
		resp := decodeBody(t, rec)
		assert.Equal(t, "Story segment is required", resp["error"])
	}

	// Ни одного обращения к хранилищу
	entries, err := os.ReadDir(env.imageDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "empty segment must cause zero storage writes")
}

func TestIllustrate_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, http.StatusServiceUnavailable, []byte("model is loading"))

	rec := env.postJSON(t, "/illustrate", `{"segment":"A quiet meadow."}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Failed to generate illustration", body["error"])
	assert.NotEmpty(t, body["details"])
}

func TestGetIllustration_UnknownName(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	req := httptest.NewRequest(http.MethodGet, "/illustrations/illustration_nope.png", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetIllustration_TraversalIsRejected(t *testing.T) {
	env := newTestEnv(t, http.StatusOK, fakePNG)

	// Секрет за пределами директории иллюстраций
	secret := filepath.Join(filepath.Dir(env.imageDir), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("top secret"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/illustrations/..%2Fsecret.txt", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "top secret")
}
