package usecase

import (
	"context"
	"errors"
	"sync"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

type emit struct {
	Target string
	Event  string
	Data   interface{}
	Except string
}

type fakeFanout struct {
	mu    sync.Mutex
	live  map[int64]map[string]bool
	emits []emit
}

func newFakeFanout() *fakeFanout {
	return &fakeFanout{live: map[int64]map[string]bool{}}
}

func (f *fakeFanout) connect(userID int64, connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.live[userID] == nil {
		f.live[userID] = map[string]bool{}
	}
	f.live[userID][connID] = true
}

func (f *fakeFanout) IsLive(userID int64, connID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[userID][connID]
}

func (f *fakeFanout) EmitToRoom(room string, event string, data interface{}, exceptConnID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emit{Target: room, Event: event, Data: data, Except: exceptConnID})
	return 1
}

func (f *fakeFanout) EmitToConnection(connID string, event string, data interface{}) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emit{Target: "conn:" + connID, Event: event, Data: data})
	return true
}

// failingRepo fails every call with err.
type failingRepo struct {
	err error
}

var errDown = errors.New("connection refused")

func (r failingRepo) CreateChannel(context.Context, chat.Channel, []chat.Member) (chat.Channel, error) {
	return chat.Channel{}, r.err
}

func (r failingRepo) ListChannelsForUser(context.Context, repository.ChannelQuery) ([]chat.Channel, error) {
	return nil, r.err
}

func (r failingRepo) ListChannelIDsForUser(context.Context, int64, int64, int) ([]int64, error) {
	return nil, r.err
}

func (r failingRepo) IsActiveMember(context.Context, int64, int64) (bool, error) {
	return false, r.err
}

func (r failingRepo) ListActiveMemberIDs(context.Context, int64) ([]int64, error) {
	return nil, r.err
}

func (r failingRepo) SaveMessage(context.Context, chat.Message) (chat.Message, error) {
	return chat.Message{}, r.err
}

func (r failingRepo) GetMessages(context.Context, int64, *int64, int) ([]chat.Message, error) {
	return nil, r.err
}

func strPtr(s string) *string { return &s }
func i64(v int64) *int64      { return &v }
