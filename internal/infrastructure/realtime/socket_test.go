package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type fakeSocket struct {
	mu       sync.Mutex
	messages [][]byte
	closeMsg []byte
	closed   bool
	failOn   int
}

func (s *fakeSocket) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if messageType != websocket.TextMessage {
		return nil
	}
	if s.failOn > 0 && len(s.messages)+1 == s.failOn {
		return websocket.ErrCloseSent
	}
	s.messages = append(s.messages, append([]byte(nil), data...))
	return nil
}

func (s *fakeSocket) WriteControl(messageType int, data []byte, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if messageType == websocket.CloseMessage {
		s.closeMsg = data
	}
	return nil
}

func (s *fakeSocket) SetWriteDeadline(time.Time) error { return nil }

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSocket) events() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, 0, len(s.messages))
	for _, m := range s.messages {
		var env Envelope
		if err := json.Unmarshal(m, &env); err == nil {
			out = append(out, env)
		}
	}
	return out
}

func (s *fakeSocket) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func newTestConn(t *testing.T, userID int64) (*Connection, *fakeSocket) {
	t.Helper()
	ws := &fakeSocket{}
	conn := NewConnection(ws)
	conn.Authenticate(userID, nil, nil)
	t.Cleanup(func() { conn.Close(websocket.CloseNormalClosure, "test done") })
	return conn, ws
}

func waitForCount(t *testing.T, ws *fakeSocket, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return ws.count() >= n }, time.Second, 5*time.Millisecond)
}
