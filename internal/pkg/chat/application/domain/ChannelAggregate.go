package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Domain-level errors for chat behaviors
var (
	ErrMissingIdentity    = errors.New("chat: channel_id and sender_id are required")
	ErrEmptyMessage       = errors.New("chat: empty message (no text or media)")
	ErrInvalidReply       = errors.New("chat: reply target is not a message of this channel")
	ErrInvalidChannelType = errors.New("chat: channel type must be direct or group")
	ErrEmptyChannelName   = errors.New("chat: channel name is required")
	ErrMissingCreator     = errors.New("chat: channel creator is required")
	ErrNoInvitees         = errors.New("chat: minimum one invited member")
	ErrNotMember          = errors.New("chat: user is not an active member of the channel")
)

// NewChannel validates the creation request and returns the channel row together
// with its initial membership.
//
// The creator is always the first member and the only admin. Invitees are
// deduplicated, non-positive ids are dropped and the creator is removed from the
// invitee list, so the creator never appears twice.
func NewChannel(ch Channel, inviteeIDs []int64, now time.Time) (Channel, []Member, error) {
	ch.Name = strings.TrimSpace(ch.Name)
	if ch.Name == "" {
		return Channel{}, nil, ErrEmptyChannelName
	}
	if !ch.Type.Valid() {
		return Channel{}, nil, ErrInvalidChannelType
	}
	if ch.CreatedBy <= 0 {
		return Channel{}, nil, ErrMissingCreator
	}

	invitees := lo.Without(lo.Uniq(lo.Filter(inviteeIDs, func(id int64, _ int) bool { return id > 0 })), ch.CreatedBy)
	if len(invitees) == 0 {
		return Channel{}, nil, ErrNoInvitees
	}

	if now.IsZero() {
		now = time.Now().UTC()
	}
	ch.CreatedAt = now.UTC()
	ch.UpdatedAt = ch.CreatedAt
	ch.Description = trimmedOrNil(ch.Description)
	ch.Image = trimmedOrNil(ch.Image)

	members := make([]Member, 0, len(invitees)+1)
	members = append(members, Member{UserID: ch.CreatedBy, IsAdmin: true, IsActive: true, JoinedAt: ch.CreatedAt})
	for _, id := range invitees {
		members = append(members, Member{UserID: id, IsActive: true, JoinedAt: ch.CreatedAt})
	}
	return ch, members, nil
}
