package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/event"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/adapter"
)

func newChannel(t *testing.T, repo *adapter.MemoryChatRepository, creator int64, invitees ...int64) chat.Channel {
	t.Helper()
	ch, _, err := NewCreateChannelUseCase(repo).Execute(context.Background(), CreateChannelInput{
		Name: "eng-standup", Type: chat.ChannelTypeGroup, CreatedBy: creator, MemberUserIDs: invitees,
	})
	require.NoError(t, err)
	return ch
}

func TestSendMessage_EchoesToOriginatingConnection(t *testing.T) {
	repo := adapter.NewMemoryChatRepository()
	ch := newChannel(t, repo, 7, 7, 9, 9, 11)
	fanout := newFakeFanout()
	fanout.connect(9, "sockA")
	fanout.connect(9, "sockB")

	uc := NewSendMessageUseCase(repo, fanout)
	msg, err := uc.Execute(context.Background(), SendMessageInput{
		TenantID: 1, ChannelID: ch.ID, SenderID: 9,
		Text: strPtr(" hi "), TempID: json.RawMessage(`501`), SocketID: "sockA",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", *msg.Text)
	assert.NotZero(t, msg.ID)

	require.Len(t, fanout.emits, 2)

	own := fanout.emits[0]
	assert.Equal(t, "conn:sockA", own.Target)
	ownEv := own.Data.(event.NewMessageEvent)
	assert.Equal(t, json.RawMessage(`501`), ownEv.TempID)
	assert.Equal(t, "sockA", ownEv.SenderSocketID)
	assert.Equal(t, msg.ID, ownEv.ID)

	room := fanout.emits[1]
	assert.Equal(t, chat.RoomName(1, ch.ID), room.Target)
	assert.Equal(t, event.NewMessage, room.Event)
	assert.Equal(t, "sockA", room.Except)
	roomEv := room.Data.(event.NewMessageEvent)
	assert.Empty(t, roomEv.TempID)
	assert.Empty(t, roomEv.SenderSocketID)
	assert.Equal(t, "hi", *roomEv.Text)
	_, err = time.Parse(time.RFC3339, roomEv.Timestamp)
	assert.NoError(t, err)
}

func TestSendMessage_StaleSocketGetsNoSenderID(t *testing.T) {
	repo := adapter.NewMemoryChatRepository()
	ch := newChannel(t, repo, 7, 9)
	fanout := newFakeFanout()

	_, err := NewSendMessageUseCase(repo, fanout).Execute(context.Background(), SendMessageInput{
		TenantID: 1, ChannelID: ch.ID, SenderID: 9, Text: strPtr("hi"), TempID: json.RawMessage(`"t-1"`), SocketID: "gone",
	})
	require.NoError(t, err)

	require.Len(t, fanout.emits, 1)
	ev := fanout.emits[0].Data.(event.NewMessageEvent)
	assert.Empty(t, ev.SenderSocketID)
	assert.Empty(t, fanout.emits[0].Except)
}

func TestSendMessage_EmptyContentPersistsNothing(t *testing.T) {
	repo := adapter.NewMemoryChatRepository()
	ch := newChannel(t, repo, 7, 9)
	fanout := newFakeFanout()

	for _, in := range []SendMessageInput{
		{TenantID: 1, ChannelID: ch.ID, SenderID: 9},
		{TenantID: 1, ChannelID: ch.ID, SenderID: 9, Text: strPtr("   "), MediaURL: strPtr("")},
	} {
		_, err := NewSendMessageUseCase(repo, fanout).Execute(context.Background(), in)
		require.ErrorIs(t, err, ErrValidation)
		require.ErrorIs(t, err, chat.ErrEmptyMessage)
	}
	assert.Zero(t, repo.MessageCount())
	assert.Empty(t, fanout.emits)
}

func TestSendMessage_FailedWriteNeverBroadcasts(t *testing.T) {
	fanout := newFakeFanout()
	_, err := NewSendMessageUseCase(failingRepo{err: errDown}, fanout).Execute(context.Background(), SendMessageInput{
		TenantID: 1, ChannelID: 3, SenderID: 9, Text: strPtr("hi"),
	})
	require.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, fanout.emits)
}

func TestSendMessage_ReplyOutsideChannel(t *testing.T) {
	repo := adapter.NewMemoryChatRepository()
	a := newChannel(t, repo, 7, 9)
	b := newChannel(t, repo, 7, 9)
	fanout := newFakeFanout()
	uc := NewSendMessageUseCase(repo, fanout)

	root, err := uc.Execute(context.Background(), SendMessageInput{TenantID: 1, ChannelID: a.ID, SenderID: 7, Text: strPtr("root")})
	require.NoError(t, err)

	_, err = uc.Execute(context.Background(), SendMessageInput{TenantID: 1, ChannelID: b.ID, SenderID: 7, Text: strPtr("x"), ReplyToID: i64(root.ID)})
	require.ErrorIs(t, err, ErrValidation)
	assert.Len(t, fanout.emits, 1)
}
