package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Inbound event names.
const (
	Auth             = "auth"
	JoinUserChannels = "join-user-channels"
	JoinChannel      = "join-channel"
	LeaveChannel     = "leave-channel"
	Typing           = "typing"
	SendMessage      = "send-message"
)

// Outbound event names.
const (
	Connected      = "connected"
	JoinedChannel  = "joined-channel"
	LeftChannel    = "left-channel"
	NewMessage     = "new-message"
	TypingUpdate   = "typing-update"
	ChannelUpdated = "channel-updated"
	Error          = "error"
)

var (
	ErrMalformed    = errors.New("event: malformed frame")
	ErrUnknownEvent = errors.New("event: unknown event")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type AuthPayload struct {
	Token string `json:"token"`
}

type JoinUserChannelsPayload struct {
	UserID   int64 `json:"userId" validate:"required,gt=0"`
	TenantID int64 `json:"tenantId" validate:"required,gt=0"`
}

// ChannelRef addresses one channel inside one tenant.
type ChannelRef struct {
	TenantID      int64 `json:"tenantId" validate:"required,gt=0"`
	ChatChannelID int64 `json:"chatChannelId" validate:"required,gt=0"`
}

type JoinChannelPayload struct {
	ChannelRef
}

type LeaveChannelPayload struct {
	ChannelRef
}

type TypingPayload struct {
	ChannelRef
	IsTyping bool `json:"isTyping"`
}

// SendMessagePayload carries an optional client-chosen TempID that is echoed
// back verbatim to the sending connection.
type SendMessagePayload struct {
	ChannelRef
	Text             *string         `json:"text"`
	MediaURL         *string         `json:"mediaUrl" validate:"omitempty,url"`
	ReplyToMessageID *int64          `json:"replyToMessageId" validate:"omitempty,gt=0"`
	TempID           json.RawMessage `json:"tempId,omitempty"`
}

// Decode parses one inbound frame and returns its event name and typed,
// validated payload.
func Decode(raw []byte) (string, interface{}, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var payload interface{}
	switch f.Event {
	case Auth:
		payload = &AuthPayload{}
	case JoinUserChannels:
		payload = &JoinUserChannelsPayload{}
	case JoinChannel:
		payload = &JoinChannelPayload{}
	case LeaveChannel:
		payload = &LeaveChannelPayload{}
	case Typing:
		payload = &TypingPayload{}
	case SendMessage:
		payload = &SendMessagePayload{}
	default:
		return f.Event, nil, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}

	if len(f.Data) > 0 && string(f.Data) != "null" {
		if err := json.Unmarshal(f.Data, payload); err != nil {
			return f.Event, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, f.Event, err)
		}
	}
	if err := validate.Struct(payload); err != nil {
		return f.Event, nil, fmt.Errorf("%w: %s: %v", ErrMalformed, f.Event, err)
	}
	return f.Event, payload, nil
}

// Timestamp formats t as ISO-8601 UTC with millisecond precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
