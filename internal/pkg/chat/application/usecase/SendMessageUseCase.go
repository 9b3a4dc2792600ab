package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/event"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

// Fanout is the slice of the connection registry the pipeline broadcasts
// through.
type Fanout interface {
	IsLive(userID int64, connID string) bool
	EmitToRoom(room string, event string, data interface{}, exceptConnID string) int
	EmitToConnection(connID string, event string, data interface{}) bool
}

// SendMessageInput carries a message from a member of the channel. TempID and
// SocketID let the originating connection reconcile its optimistic copy.
type SendMessageInput struct {
	TenantID  int64
	ChannelID int64
	SenderID  int64
	Text      *string
	MediaURL  *string
	ReplyToID *int64
	TempID    json.RawMessage
	SocketID  string
}

// SendMessageUseCase persists a message and then broadcasts it. Callers must
// have checked membership.
type SendMessageUseCase struct {
	Repo   repository.ChatRepository
	Fanout Fanout
	Now    func() time.Time
}

func NewSendMessageUseCase(repo repository.ChatRepository, fanout Fanout) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, Fanout: fanout, Now: time.Now}
}

// Execute returns the committed message. The broadcast never runs for a
// failed write, and a failed broadcast never undoes the write.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	msg, err := chat.NewMessage(chat.Message{
		ChannelID: in.ChannelID,
		SenderID:  in.SenderID,
		Text:      in.Text,
		MediaURL:  in.MediaURL,
		ReplyToID: in.ReplyToID,
		CreatedAt: uc.Now().UTC(),
	})
	if err != nil {
		return nil, validation(err)
	}

	saved, err := uc.Repo.SaveMessage(ctx, *msg)
	if errors.Is(err, chat.ErrInvalidReply) {
		return nil, validation(err)
	}
	if err != nil {
		return nil, persistence(err)
	}

	if uc.Fanout != nil {
		uc.broadcast(saved, in)
	}
	return &saved, nil
}

func (uc *SendMessageUseCase) broadcast(msg chat.Message, in SendMessageInput) {
	ev := event.NewMessageEvent{
		Message:   msg,
		TenantID:  in.TenantID,
		Timestamp: event.Timestamp(uc.Now()),
	}
	room := chat.RoomName(in.TenantID, msg.ChannelID)

	if in.SocketID == "" || !uc.Fanout.IsLive(in.SenderID, in.SocketID) {
		uc.Fanout.EmitToRoom(room, event.NewMessage, ev, "")
		return
	}

	own := ev
	own.TempID = in.TempID
	own.SenderSocketID = in.SocketID
	uc.Fanout.EmitToConnection(in.SocketID, event.NewMessage, own)
	uc.Fanout.EmitToRoom(room, event.NewMessage, ev, in.SocketID)
}
