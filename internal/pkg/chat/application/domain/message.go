package chat

import (
	"strings"
	"time"
)

// Message is an entry in a channel's log. Text and MediaURL are both optional
// but never both absent.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	ChannelID int64     `db:"channel_id" json:"channelId"`
	SenderID  int64     `db:"sender_id" json:"senderId"`
	Text      *string   `db:"text" json:"text,omitempty"`
	MediaURL  *string   `db:"media_url" json:"mediaUrl,omitempty"`
	ReplyToID *int64    `db:"reply_to_id" json:"replyToMessageId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	IsDeleted bool      `db:"is_deleted" json:"-"`
}

// NewMessage normalizes m and enforces the content invariant.
// Blank text and blank media URLs are treated as absent.
func NewMessage(m Message) (*Message, error) {
	if m.ChannelID <= 0 || m.SenderID <= 0 {
		return nil, ErrMissingIdentity
	}

	m.Text = trimmedOrNil(m.Text)
	m.MediaURL = trimmedOrNil(m.MediaURL)

	if m.Text == nil && m.MediaURL == nil {
		return nil, ErrEmptyMessage
	}
	if m.ReplyToID != nil && *m.ReplyToID <= 0 {
		return nil, ErrInvalidReply
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = m.CreatedAt

	return &m, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
