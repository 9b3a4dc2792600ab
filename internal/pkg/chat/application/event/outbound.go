package event

import (
	"encoding/json"
	"time"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
)

// Error codes carried by the error event.
const (
	CodeUnauthorized      = "unauthorized"
	CodeBadRequest        = "bad_request"
	CodeForbidden         = "forbidden"
	CodeInternal          = "internal_error"
	CodeTenantUnavailable = "tenant_unavailable"
	CodeRateLimited       = "rate_limited"
	CodeUnsupported       = "unsupported_event"
)

type ConnectedPayload struct {
	SocketID  string `json:"socketId"`
	UserID    int64  `json:"userId"`
	TenantID  *int64 `json:"tenantId,omitempty"`
	Timestamp string `json:"timestamp"`
}

type JoinedPayload struct {
	TenantID       int64   `json:"tenantId"`
	ChatChannelIDs []int64 `json:"chatChannelIds"`
	Timestamp      string  `json:"timestamp"`
}

type LeftPayload struct {
	TenantID      int64  `json:"tenantId"`
	ChatChannelID int64  `json:"chatChannelId"`
	Timestamp     string `json:"timestamp"`
}

// NewMessageEvent is the broadcast form of a persisted message. TempID and
// SenderSocketID are only set on the copy sent to the originating connection.
type NewMessageEvent struct {
	chat.Message
	TenantID       int64           `json:"tenantId"`
	TempID         json.RawMessage `json:"tempId,omitempty"`
	SenderSocketID string          `json:"senderSocketId,omitempty"`
	Timestamp      string          `json:"timestamp"`
}

type TypingUpdatePayload struct {
	TenantID      int64  `json:"tenantId"`
	ChatChannelID int64  `json:"chatChannelId"`
	UserID        int64  `json:"userId"`
	IsTyping      bool   `json:"isTyping"`
	Timestamp     string `json:"timestamp"`
}

type ChannelUpdatedPayload struct {
	TenantID  int64        `json:"tenantId"`
	Channel   chat.Channel `json:"channel"`
	Reason    string       `json:"reason"`
	Timestamp string       `json:"timestamp"`
}

type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Event     string `json:"event,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewError(code string, message string, inResponseTo string, now time.Time) ErrorPayload {
	return ErrorPayload{Code: code, Message: message, Event: inResponseTo, Timestamp: Timestamp(now)}
}
