package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
)

func TestRegistry_AddRemove(t *testing.T) {
	reg := NewRegistry(NewHub(), nil, nil)

	a, _ := newTestConn(t, 7)
	b, _ := newTestConn(t, 7)

	assert.Empty(t, reg.Sockets(7))
	assert.False(t, reg.IsOnline(7))

	reg.Add(a)
	reg.Add(b)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, reg.Sockets(7))
	assert.True(t, reg.IsOnline(7))
	assert.True(t, reg.IsLive(7, a.ID))
	assert.True(t, reg.InRoom(chat.UserRoom(7), a.ID))
	assert.Equal(t, 2, reg.Count())
	assert.Equal(t, 1, reg.UserCount())

	assert.True(t, reg.Remove(a))
	assert.False(t, reg.Remove(a))
	assert.Equal(t, []string{b.ID}, reg.Sockets(7))
	assert.False(t, reg.IsLive(7, a.ID))
	assert.False(t, reg.InRoom(chat.UserRoom(7), a.ID))

	assert.True(t, reg.Remove(b))
	assert.False(t, reg.IsOnline(7))
	assert.Equal(t, 0, reg.UserCount())

	reg.mu.Lock()
	_, present := reg.byUser[7]
	reg.mu.Unlock()
	assert.False(t, present, "empty set must not linger")
}

func TestRegistry_ConnectDisconnectCounts(t *testing.T) {
	reg := NewRegistry(NewHub(), nil, nil)

	const n, m = 40, 25
	conns := make([]*Connection, n)
	for i := range conns {
		conns[i], _ = newTestConn(t, 3)
	}

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			reg.Add(c)
		}(c)
	}
	wg.Wait()

	for _, c := range conns[:m] {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			reg.Remove(c)
		}(c)
	}
	wg.Wait()
	assert.Len(t, reg.Sockets(3), n-m)

	for _, c := range conns[m:] {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			reg.Remove(c)
		}(c)
	}
	wg.Wait()

	assert.Empty(t, reg.Sockets(3))
	assert.Equal(t, 0, reg.UserCount())
}

func TestRegistry_EmitToUser(t *testing.T) {
	reg := NewRegistry(NewHub(), nil, nil)

	phone, phoneWS := newTestConn(t, 9)
	laptop, laptopWS := newTestConn(t, 9)
	other, otherWS := newTestConn(t, 11)
	reg.Add(phone)
	reg.Add(laptop)
	reg.Add(other)

	assert.Equal(t, 2, reg.EmitToUser(9, "channel-updated", map[string]int{"chatChannelId": 1}))
	assert.Equal(t, 0, reg.EmitToUser(404, "channel-updated", nil))

	waitForCount(t, phoneWS, 1)
	waitForCount(t, laptopWS, 1)
	assert.Equal(t, "channel-updated", phoneWS.events()[0].Event)
	assert.Equal(t, 0, otherWS.count())
}

func TestRegistry_RoomsAndDirectEmit(t *testing.T) {
	reg := NewRegistry(NewHub(), nil, nil)
	room := chat.RoomName(1, 5)

	a, aWS := newTestConn(t, 9)
	b, bWS := newTestConn(t, 11)
	c, _ := newTestConn(t, 12)
	for _, conn := range []*Connection{a, b, c} {
		reg.Add(conn)
	}
	require.True(t, reg.Join(room, a))
	require.True(t, reg.Join(room, b))

	assert.Equal(t, 1, reg.EmitToRoom(room, "typing-update", map[string]bool{"isTyping": true}, a.ID))
	waitForCount(t, bWS, 1)
	assert.Equal(t, 0, aWS.count())

	assert.True(t, reg.EmitToConnection(a.ID, "new-message", map[string]string{"tempId": "1"}))
	waitForCount(t, aWS, 1)

	reg.Leave(room, b)
	assert.False(t, reg.InRoom(room, b.ID))
	assert.Equal(t, 0, reg.EmitToRoom(room, "typing-update", nil, a.ID))

	reg.Remove(a)
	assert.False(t, reg.EmitToConnection(a.ID, "new-message", nil))

	unregistered, _ := newTestConn(t, 13)
	assert.False(t, reg.Join(room, unregistered))
}

func TestRegistry_TouchAndClose(t *testing.T) {
	reg := NewRegistry(NewHub(), nil, nil)
	conn, _ := newTestConn(t, 1)
	reg.Add(conn)

	first, ok := reg.LastActivity(conn.ID)
	require.True(t, ok)

	later := first.Add(time.Minute)
	reg.now = func() time.Time { return later }
	reg.Touch(conn.ID)
	reg.Touch("unknown")

	got, ok := reg.LastActivity(conn.ID)
	require.True(t, ok)
	assert.Equal(t, later, got)
	_, ok = reg.LastActivity("unknown")
	assert.False(t, ok)

	reg.Close()
	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("registry close did not close connections")
	}
}
