package realtime

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/metrics"
	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
)

// Envelope is the wire frame for every outbound event.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Registry maps user ids to their live connections and fans events out
// through the Hub. A user key exists only while its set is non-empty.
type Registry struct {
	hub     *Hub
	log     *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	byUser   map[int64]map[string]*Connection
	activity map[string]time.Time
	now      func() time.Time
}

func NewRegistry(hub *Hub, log *zap.Logger, m *metrics.Metrics) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		hub:      hub,
		log:      log,
		metrics:  m,
		byUser:   make(map[int64]map[string]*Connection),
		activity: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Add registers an authenticated connection and subscribes it to its user room.
func (r *Registry) Add(conn *Connection) {
	r.hub.Attach(conn)
	r.hub.Join(chat.UserRoom(conn.UserID), conn)

	r.mu.Lock()
	set := r.byUser[conn.UserID]
	if set == nil {
		set = make(map[string]*Connection)
		r.byUser[conn.UserID] = set
	}
	set[conn.ID] = conn
	r.activity[conn.ID] = r.now()
	r.mu.Unlock()

	r.metrics.ConnectionOpened()
	r.log.Debug("connection registered", zap.String("conn_id", conn.ID), zap.Int64("user_id", conn.UserID))
}

// Remove unregisters conn. It reports false when conn was not registered, so
// repeated calls are harmless.
func (r *Registry) Remove(conn *Connection) bool {
	r.mu.Lock()
	set, ok := r.byUser[conn.UserID]
	if ok {
		_, ok = set[conn.ID]
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(r.byUser, conn.UserID)
		}
	}
	delete(r.activity, conn.ID)
	r.mu.Unlock()

	r.hub.Detach(conn)
	if ok {
		r.metrics.ConnectionClosed()
		r.log.Debug("connection unregistered", zap.String("conn_id", conn.ID), zap.Int64("user_id", conn.UserID))
	}
	return ok
}

// Sockets returns the user's connection ids in sorted order. Unknown users
// yield an empty slice.
func (r *Registry) Sockets(userID int64) []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.byUser[userID]))
	for id := range r.byUser[userID] {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) IsOnline(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID]) > 0
}

// IsLive reports whether connID is currently registered for userID.
func (r *Registry) IsLive(userID int64, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byUser[userID][connID]
	return ok
}

// Count is the number of registered connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.activity)
}

// UserCount is the number of users with at least one connection.
func (r *Registry) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

// Touch records inbound activity on a registered connection.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	if _, ok := r.activity[connID]; ok {
		r.activity[connID] = r.now()
	}
	r.mu.Unlock()
}

func (r *Registry) LastActivity(connID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.activity[connID]
	return t, ok
}

func (r *Registry) Join(room string, conn *Connection) bool {
	return r.hub.Join(room, conn)
}

func (r *Registry) Leave(room string, conn *Connection) {
	r.hub.Leave(room, conn)
}

func (r *Registry) InRoom(room string, connID string) bool {
	return r.hub.InRoom(room, connID)
}

// EmitToUser pushes an event to every device of userID. Offline users are a
// silent no-op.
func (r *Registry) EmitToUser(userID int64, event string, data interface{}) int {
	if !r.IsOnline(userID) {
		return 0
	}
	return r.EmitToRoom(chat.UserRoom(userID), event, data, "")
}

// EmitToRoom broadcasts to room, skipping exceptConnID when non-empty.
func (r *Registry) EmitToRoom(room string, event string, data interface{}, exceptConnID string) int {
	payload, ok := r.encode(event, data)
	if !ok {
		return 0
	}
	n := r.hub.Broadcast(room, payload, exceptConnID)
	r.metrics.EventEmitted(event, n)
	return n
}

// EmitToConnection delivers an event to one connection.
func (r *Registry) EmitToConnection(connID string, event string, data interface{}) bool {
	payload, ok := r.encode(event, data)
	if !ok {
		return false
	}
	sent := r.hub.SendTo(connID, payload)
	if sent {
		r.metrics.EventEmitted(event, 1)
	}
	return sent
}

// Close disconnects every connection.
func (r *Registry) Close() {
	r.hub.Close()
}

func (r *Registry) encode(event string, data interface{}) ([]byte, bool) {
	payload, err := Encode(event, data)
	if err != nil {
		r.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return payload, true
}

// Encode wraps data in the outbound envelope.
func Encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}
