package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"saintchat/model"
	"saintchat/service"
)

const testSecret = "test-secret"

type echoGenerator struct {
	err error
}

func (g *echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return "echo: " + prompt, nil
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	gen    *echoGenerator
	tokens *service.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "chat.db")), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, model.InstallDB(db))

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := model.NewStore(db)
	resolver := service.NewEntitlementResolver(log,
		service.CustomerEntitlementSource{Customers: store, ProductID: "premium.monthly", EntitlementID: "Monthly Premium"},
		service.UserFlagSource{Users: store},
	)
	gen := &echoGenerator{}
	chat := service.NewChatService(resolver, service.NewQuotaEnforcer(store, log), store, gen, log)
	tokens := service.NewTokenService(testSecret)

	router := NewRouter(RouterConfig{
		CORSOrigin: "*",
		Auth:       NewAuthController(tokens, log),
		Chat:       NewChatController(chat, service.NewHistoryService(store, log), log),
		Log:        log,
	})
	return &testServer{router: router, db: db, gen: gen, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, uid, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		token, err := s.tokens.CreateToken(uid, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body, 1)
	return body["error"]
}

func TestRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	for _, tc := range []struct{ method, path, failure string }{
		{http.MethodPost, "/v1/chat/message", "Failed to process message"},
		{http.MethodGet, "/v1/chat/history", "Failed to fetch chat history"},
		{http.MethodGet, "/v1/chat/status", "Failed to fetch status"},
	} {
		w := s.do(t, tc.method, tc.path, "", `{"message":"hi"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code, tc.path)
		assert.Equal(t, tc.failure, errorBody(t, w))
	}
}

func TestProcessMessageHandler(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/v1/chat/message", "alice", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var reply map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reply))
	assert.Equal(t, "assistant", reply["role"])
	assert.Equal(t, "echo: hello", reply["message"])
	assert.Equal(t, "echo: hello", reply["response"])
	assert.NotEmpty(t, reply["conversationId"])

	body := fmt.Sprintf(`{"message":"again","conversationId":%q}`, reply["conversationId"])
	w = s.do(t, http.MethodPost, "/v1/chat/message", "alice", body)
	require.Equal(t, http.StatusOK, w.Code)
	var second map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, reply["conversationId"], second["conversationId"])
}

func TestProcessMessageHandlerErrorsAreIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.db.Create(&model.User{UID: "capped", MessageCount: service.FreeMessageLimit}).Error)

	type response struct {
		code int
		body string
	}
	send := func(uid, body string) response {
		w := s.do(t, http.MethodPost, "/v1/chat/message", uid, body)
		return response{w.Code, w.Body.String()}
	}

	want := response{http.StatusInternalServerError, `{"error":"Failed to process message"}`}
	got := map[string]response{
		"no token":   send("", `{"message":"hi"}`),
		"empty":      send("alice", `{"message":""}`),
		"whitespace": send("alice", `{"message":"   "}`),
		"invalid":    send("alice", `not json`),
		"over quota": send("capped", `{"message":"hi"}`),
	}
	s.gen.err = fmt.Errorf("%w: timeout", service.ErrUpstream)
	got["upstream"] = send("alice", `{"message":"hi"}`)
	s.gen.err = errors.New("connection reset")
	got["generator"] = send("alice", `{"message":"hi"}`)

	for kind, resp := range got {
		assert.Equal(t, want.code, resp.code, kind)
		assert.JSONEq(t, want.body, resp.body, kind)
	}

	// None of the failures touched the counters.
	_, err := model.NewStore(s.db).GetUser(context.Background(), "alice")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestHistoryHandler(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/v1/chat/history", "bob", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodPost, "/v1/chat/message", "bob", `{"message":"hello","conversationId":"c1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/v1/chat/history", "bob", "")
	require.Equal(t, http.StatusOK, w.Code)

	var convs []struct {
		ID          string    `json:"id"`
		LastUpdated time.Time `json:"lastUpdated"`
		Messages    []struct {
			Role      string    `json:"role"`
			Content   string    `json:"content"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	assert.Equal(t, "c1", convs[0].ID)
	assert.False(t, convs[0].LastUpdated.IsZero())
	require.Len(t, convs[0].Messages, 2)
	assert.Equal(t, "user", convs[0].Messages[0].Role)
	assert.Equal(t, "hello", convs[0].Messages[0].Content)
	assert.Equal(t, "assistant", convs[0].Messages[1].Role)
	assert.Equal(t, "echo: hello", convs[0].Messages[1].Content)
	assert.False(t, convs[0].Messages[0].Timestamp.IsZero())

	// Another caller sees none of it.
	w = s.do(t, http.MethodGet, "/v1/chat/history", "eve", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestStatusHandler(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.db.Create(&model.User{UID: "dana", MessageCount: 10}).Error)

	w := s.do(t, http.MethodGet, "/v1/chat/status", "dana", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tier":"free","messageCount":10,"messageLimit":30,"remaining":20}`, w.Body.String())
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
