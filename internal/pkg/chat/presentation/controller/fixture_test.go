package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/auth"
	qport "github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/queue/port"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/ratelimit"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/realtime"
	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/tenant"
	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/adapter"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
)

const testTenant int64 = 3

// recSocket records text frames written by a Connection.
type recSocket struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *recSocket) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.TextMessage {
		s.mu.Lock()
		s.frames = append(s.frames, append([]byte(nil), data...))
		s.mu.Unlock()
	}
	return nil
}

func (s *recSocket) WriteControl(int, []byte, time.Time) error { return nil }
func (s *recSocket) SetWriteDeadline(time.Time) error          { return nil }
func (s *recSocket) Close() error                              { return nil }

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (s *recSocket) named(name string) []map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []map[string]interface{}
	for _, raw := range s.frames {
		var f frame
		if json.Unmarshal(raw, &f) != nil || f.Event != name {
			continue
		}
		var data map[string]interface{}
		_ = json.Unmarshal(f.Data, &data)
		out = append(out, data)
	}
	return out
}

// waitFor blocks until the socket has received n events called name.
func (s *recSocket) waitFor(t *testing.T, name string, n int) []map[string]interface{} {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.named(name)) >= n }, time.Second, 5*time.Millisecond)
	return s.named(name)
}

type memQueue struct {
	mu    sync.Mutex
	tasks []qport.Task
	err   error
}

func (q *memQueue) Enqueue(_ context.Context, t qport.Task, _ ...qport.EnqueueOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.tasks = append(q.tasks, t)
	return "task-1", nil
}

func (q *memQueue) Close() error { return nil }

type stubLimiter struct {
	res  ratelimit.Result
	err  error
	keys []string
}

func (l *stubLimiter) Allow(_ context.Context, key string) (ratelimit.Result, error) {
	l.keys = append(l.keys, key)
	return l.res, l.err
}

var errBackend = errors.New("backend down")

type fixture struct {
	deps     Deps
	verifier *auth.JWTVerifier
	registry *realtime.Registry

	mu    sync.Mutex
	repos map[string]*adapter.MemoryChatRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	resolver := tenant.NewResolver(func(ctx context.Context, schema string) (*pgxpool.Pool, error) {
		return pgxpool.New(ctx, "postgres://u:p@127.0.0.1:1/db")
	}, "public", "tenant_", nil, nil)
	t.Cleanup(resolver.Close)

	f := &fixture{
		verifier: auth.NewJWTVerifier("secret", "team-orbit"),
		registry: realtime.NewRegistry(realtime.NewHub(), nil, nil),
		repos:    make(map[string]*adapter.MemoryChatRepository),
	}
	f.deps = Deps{
		Repos:            f.repoFor,
		Auth:             usecase.NewAuthenticateUseCase(f.verifier, resolver, nil),
		Registry:         f.registry,
		HandshakeTimeout: time.Second,
		InflightTimeout:  time.Second,
	}
	return f
}

func (f *fixture) repo(key string) *adapter.MemoryChatRepository {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.repos[key]
	if !ok {
		r = adapter.NewMemoryChatRepository()
		f.repos[key] = r
	}
	return r
}

func (f *fixture) repoFor(h *tenant.Handle) repository.ChatRepository {
	return f.repo(h.Key)
}

func (f *fixture) tenantRepo() *adapter.MemoryChatRepository {
	return f.repo("tenant_3")
}

func (f *fixture) engine() *gin.Engine {
	r := gin.New()
	g := r.Group("", middleware.Authenticate(f.deps.Auth, time.Second, nil, nil))
	g.POST("/channels", NewCreateChannelController(f.deps).Handle())
	g.GET("/channels", NewListChannelsController(f.deps).Handle())
	g.GET("/channels/:channelId/messages", NewGetMessageController(f.deps).Handle())
	g.POST("/channels/:channelId/messages", NewSendMessageController(f.deps).Handle())
	g.GET("/channels/:channelId/members", NewListMembersController(f.deps).Handle())
	return r
}

func (f *fixture) token(t *testing.T, userID int64, tenantID *int64) string {
	t.Helper()
	tok, err := f.verifier.Issue(userID, tenantID, time.Minute)
	require.NoError(t, err)
	return tok
}

func (f *fixture) tenantToken(t *testing.T, userID int64) string {
	tid := testTenant
	return f.token(t, userID, &tid)
}

func (f *fixture) do(t *testing.T, method string, path string, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine().ServeHTTP(w, req)
	return w
}

// connect registers a live connection for userID in the test tenant.
func (f *fixture) connect(t *testing.T, userID int64) (*realtime.Connection, *recSocket) {
	t.Helper()
	ws := &recSocket{}
	conn := realtime.NewConnection(ws)
	tid := testTenant
	conn.Authenticate(userID, &tid, nil)
	f.registry.Add(conn)
	t.Cleanup(func() {
		f.registry.Remove(conn)
		conn.Close(websocket.CloseNormalClosure, "")
	})
	return conn, ws
}

// channel creates a group channel in the test tenant.
func (f *fixture) channel(t *testing.T, creator int64, typ chat.ChannelType, invitees ...int64) chat.Channel {
	t.Helper()
	ch, members, err := chat.NewChannel(chat.Channel{Name: "room", Type: typ, CreatedBy: creator}, invitees, time.Now())
	require.NoError(t, err)
	created, err := f.tenantRepo().CreateChannel(context.Background(), ch, members)
	require.NoError(t, err)
	return created
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type obj = map[string]interface{}

func listAll(userID int64) repository.ChannelQuery {
	return repository.ChannelQuery{UserID: userID, Limit: 100}
}
