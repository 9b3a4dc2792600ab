package chat

import "time"

// ChannelType distinguishes one-to-one threads from group rooms.
// It is fixed when the channel is created.
type ChannelType string

const (
	ChannelTypeDirect ChannelType = "direct"
	ChannelTypeGroup  ChannelType = "group"
)

// Valid reports whether t is a known channel type.
func (t ChannelType) Valid() bool {
	return t == ChannelTypeDirect || t == ChannelTypeGroup
}

// Channel is a tenant-scoped conversation with a fixed type
type Channel struct {
	ID          int64       `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description *string     `db:"description" json:"description,omitempty"`
	Image       *string     `db:"image" json:"image,omitempty"`
	Type        ChannelType `db:"type" json:"type"`
	CreatedBy   int64       `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
	IsDeleted   bool        `db:"is_deleted" json:"-"`
}
