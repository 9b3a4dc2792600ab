package chat

import "time"

// Member captures one user's membership in a channel.
// At most one active row exists per (ChannelID, UserID).
type Member struct {
	ChannelID int64     `db:"channel_id" json:"channelId"`
	UserID    int64     `db:"user_id" json:"userId"`
	IsAdmin   bool      `db:"is_admin" json:"isAdmin"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	JoinedAt  time.Time `db:"joined_at" json:"joinedAt"`
}
