package controller

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/realtime"
	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/event"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/usecase"
	"github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/presentation/middleware"
)

const (
	defaultReadTimeout = 60 * time.Second
	maxFrameBytes      = 1 << 20
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Credentials travel in the auth frame, not in cookies.
		return true
	},
}

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
type ChatSocketController struct {
	deps Deps
	now  func() time.Time
}

func NewChatSocketController(deps Deps) *ChatSocketController {
	return &ChatSocketController{deps: deps, now: time.Now}
}

// Handle upgrades the request, requires an auth frame within the handshake
// timeout and then processes events until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			ctl.deps.logger().Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		ws.SetReadLimit(maxFrameBytes)
		conn := realtime.NewConnection(ws)

		session, err := ctl.handshake(c.Request, ws)
		if err != nil {
			ctl.reject(conn, err)
			return
		}

		conn.Authenticate(session.UserID, session.TenantID, session.Bundle)
		ctl.deps.Registry.Add(conn)
		defer func() {
			ctl.deps.Registry.Remove(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		ctl.deps.Registry.EmitToConnection(conn.ID, event.Connected, event.ConnectedPayload{
			SocketID:  conn.ID,
			UserID:    session.UserID,
			TenantID:  session.TenantID,
			Timestamp: event.Timestamp(ctl.now()),
		})

		s := &socketSession{ctl: ctl, conn: conn, session: session}
		for {
			_, raw, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					ctl.deps.logger().Debug("websocket read failed", zap.String("conn_id", conn.ID), zap.Error(err))
				}
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
			ctl.deps.Registry.Touch(conn.ID)
			s.dispatch(c.Request.Context(), raw)
		}
	}
}

func (ctl *ChatSocketController) handshake(r *http.Request, ws *websocket.Conn) (*usecase.Session, error) {
	_ = ws.SetReadDeadline(time.Now().Add(ctl.deps.HandshakeTimeout))
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: no auth frame: %v", usecase.ErrMissingCredential, err)
	}
	name, payload, err := event.Decode(raw)
	if err != nil || name != event.Auth {
		return nil, fmt.Errorf("%w: first frame must be %q", usecase.ErrMissingCredential, event.Auth)
	}

	credential := middleware.ExtractCredential(
		payload.(*event.AuthPayload).Token,
		r.URL.Query().Get("token"),
		r.Header.Get("Authorization"),
	)

	ctx, cancel := context.WithTimeout(r.Context(), ctl.deps.InflightTimeout)
	defer cancel()
	return ctl.deps.Auth.Execute(ctx, credential)
}

// reject sends a terminal error event and closes the unregistered connection.
func (ctl *ChatSocketController) reject(conn *realtime.Connection, err error) {
	reason := middleware.AuthFailureReason(err)
	ctl.deps.Metrics.AuthFailed(reason)
	ctl.deps.logger().Info("websocket handshake rejected", zap.String("conn_id", conn.ID), zap.String("reason", reason), zap.Error(err))

	_, code, msg := classify(err)
	if payload, encErr := realtime.Encode(event.Error, event.NewError(code, msg, event.Auth, ctl.now())); encErr == nil {
		_ = conn.Send(payload)
	}
	conn.Close(websocket.ClosePolicyViolation, msg)
	<-conn.Done()
}

// socketSession is the per-connection event state. Events of one connection
// are handled in arrival order.
type socketSession struct {
	ctl     *ChatSocketController
	conn    *realtime.Connection
	session *usecase.Session
}

func (s *socketSession) dispatch(parent context.Context, raw []byte) {
	name, payload, err := event.Decode(raw)
	if err != nil {
		s.fail(name, err)
		return
	}

	// In-flight work outlives the connection; only the timeout bounds it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.ctl.deps.InflightTimeout)
	defer cancel()

	switch p := payload.(type) {
	case *event.AuthPayload:
		err = fmt.Errorf("%w: connection is already authenticated", usecase.ErrValidation)
	case *event.JoinUserChannelsPayload:
		err = s.joinUserChannels(ctx, p)
	case *event.JoinChannelPayload:
		err = s.joinChannel(ctx, p.ChannelRef)
	case *event.LeaveChannelPayload:
		err = s.leaveChannel(p.ChannelRef)
	case *event.TypingPayload:
		err = s.typing(p)
	case *event.SendMessagePayload:
		err = s.sendMessage(ctx, p)
	}
	if err != nil {
		s.fail(name, err)
	}
}

func (s *socketSession) joinUserChannels(ctx context.Context, p *event.JoinUserChannelsPayload) error {
	repo, _, err := s.ctl.deps.tenantRepo(s.session, p.TenantID)
	if err != nil {
		return err
	}
	out, err := usecase.NewJoinUserChannelsUseCase(repo).Execute(ctx, usecase.JoinUserChannelsInput{
		Session:  s.session.Identity,
		UserID:   p.UserID,
		TenantID: p.TenantID,
	})
	if err != nil {
		return err
	}
	for _, room := range out.Rooms {
		s.ctl.deps.Registry.Join(room, s.conn)
	}
	s.emit(event.JoinedChannel, event.JoinedPayload{
		TenantID:       p.TenantID,
		ChatChannelIDs: out.ChannelIDs,
		Timestamp:      s.timestamp(),
	})
	return nil
}

func (s *socketSession) joinChannel(ctx context.Context, ref event.ChannelRef) error {
	repo, _, err := s.ctl.deps.tenantRepo(s.session, ref.TenantID)
	if err != nil {
		return err
	}
	membership := usecase.NewCheckMembershipUseCase(repo)
	if err := membership.Authorize(ctx, usecase.CheckMembershipInput{ChannelID: ref.ChatChannelID, UserID: s.session.UserID}); err != nil {
		return err
	}
	s.ctl.deps.Registry.Join(chat.RoomName(ref.TenantID, ref.ChatChannelID), s.conn)
	s.emit(event.JoinedChannel, event.JoinedPayload{
		TenantID:       ref.TenantID,
		ChatChannelIDs: []int64{ref.ChatChannelID},
		Timestamp:      s.timestamp(),
	})
	return nil
}

func (s *socketSession) leaveChannel(ref event.ChannelRef) error {
	if _, _, err := s.ctl.deps.tenantRepo(s.session, ref.TenantID); err != nil {
		return err
	}
	s.ctl.deps.Registry.Leave(chat.RoomName(ref.TenantID, ref.ChatChannelID), s.conn)
	s.emit(event.LeftChannel, event.LeftPayload{
		TenantID:      ref.TenantID,
		ChatChannelID: ref.ChatChannelID,
		Timestamp:     s.timestamp(),
	})
	return nil
}

// typing is relayed only within a room the connection has already joined.
func (s *socketSession) typing(p *event.TypingPayload) error {
	if _, _, err := s.ctl.deps.tenantRepo(s.session, p.TenantID); err != nil {
		return err
	}
	room := chat.RoomName(p.TenantID, p.ChatChannelID)
	if !s.ctl.deps.Registry.InRoom(room, s.conn.ID) {
		return fmt.Errorf("%w: join channel %d first", usecase.ErrAuthorization, p.ChatChannelID)
	}
	s.ctl.deps.Registry.EmitToRoom(room, event.TypingUpdate, event.TypingUpdatePayload{
		TenantID:      p.TenantID,
		ChatChannelID: p.ChatChannelID,
		UserID:        s.session.UserID,
		IsTyping:      p.IsTyping,
		Timestamp:     s.timestamp(),
	}, s.conn.ID)
	return nil
}

func (s *socketSession) sendMessage(ctx context.Context, p *event.SendMessagePayload) error {
	repo, tenantID, err := s.ctl.deps.tenantRepo(s.session, p.TenantID)
	if err != nil {
		return err
	}
	_, err = s.ctl.deps.sendMessage(ctx, repo, usecase.SendMessageInput{
		TenantID:  tenantID,
		ChannelID: p.ChatChannelID,
		SenderID:  s.session.UserID,
		Text:      p.Text,
		MediaURL:  p.MediaURL,
		ReplyToID: p.ReplyToMessageID,
		TempID:    p.TempID,
		SocketID:  s.conn.ID,
	})
	return err
}

func (s *socketSession) fail(name string, err error) {
	status, code, msg := classify(err)
	log := s.ctl.deps.logger().With(zap.String("conn_id", s.conn.ID), zap.String("event", name))
	if status >= http.StatusInternalServerError {
		log.Error("socket event failed", zap.Error(err))
	} else {
		log.Debug("socket event rejected", zap.Error(err))
	}
	s.emit(event.Error, event.NewError(code, msg, name, s.ctl.now()))
}

func (s *socketSession) emit(name string, data interface{}) {
	s.ctl.deps.Registry.EmitToConnection(s.conn.ID, name, data)
}

func (s *socketSession) timestamp() string {
	return event.Timestamp(s.ctl.now())
}
