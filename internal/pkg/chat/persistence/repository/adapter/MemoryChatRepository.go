package adapter

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"
)

// MemoryChatRepository is an in-process ChatRepository with the same
// visibility rules as the Postgres adapter. It backs tests and local runs
// without a database.
type MemoryChatRepository struct {
	mu       sync.RWMutex
	channels map[int64]*chat.Channel
	members  []chat.Member
	messages []chat.Message
	nextID   int64
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{channels: make(map[int64]*chat.Channel)}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

func (r *MemoryChatRepository) CreateChannel(_ context.Context, ch chat.Channel, members []chat.Member) (chat.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]bool, len(members))
	for _, m := range members {
		if m.UserID <= 0 {
			return chat.Channel{}, errors.New("memory: member user id must be positive")
		}
		if seen[m.UserID] {
			return chat.Channel{}, errors.New("memory: duplicate active membership")
		}
		seen[m.UserID] = true
	}

	r.nextID++
	ch.ID = r.nextID
	stored := ch
	r.channels[ch.ID] = &stored
	for _, m := range members {
		m.ChannelID = ch.ID
		m.IsActive = true
		if m.JoinedAt.IsZero() {
			m.JoinedAt = ch.CreatedAt
		}
		r.members = append(r.members, m)
	}
	return ch, nil
}

func (r *MemoryChatRepository) ListChannelsForUser(_ context.Context, q repository.ChannelQuery) ([]chat.Channel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []chat.Channel
	for _, ch := range r.channels {
		if ch.IsDeleted || !r.activeLocked(ch.ID, q.UserID) {
			continue
		}
		if q.Type != nil && ch.Type != *q.Type {
			continue
		}
		if q.Search != nil && !matches(*ch, *q.Search) {
			continue
		}
		out = append(out, *ch)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})

	if q.Offset >= len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *MemoryChatRepository) ListChannelIDsForUser(_ context.Context, userID int64, afterID int64, limit int) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []int64
	for id, ch := range r.channels {
		if id > afterID && !ch.IsDeleted && r.activeLocked(id, userID) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit < len(ids) {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *MemoryChatRepository) IsActiveMember(_ context.Context, channelID int64, userID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.channels[channelID]
	return ok && !ch.IsDeleted && r.activeLocked(channelID, userID), nil
}

func (r *MemoryChatRepository) ListActiveMemberIDs(_ context.Context, channelID int64) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []int64
	for _, m := range r.members {
		if m.ChannelID == channelID && m.IsActive {
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

func (r *MemoryChatRepository) SaveMessage(_ context.Context, m chat.Message) (chat.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.channels[m.ChannelID]
	if !ok {
		return chat.Message{}, errors.New("memory: channel does not exist")
	}
	if m.ReplyToID != nil {
		found := false
		for _, prev := range r.messages {
			if prev.ID == *m.ReplyToID && prev.ChannelID == m.ChannelID && !prev.IsDeleted {
				found = true
				break
			}
		}
		if !found {
			return chat.Message{}, chat.ErrInvalidReply
		}
	}

	r.nextID++
	m.ID = r.nextID
	r.messages = append(r.messages, m)
	ch.UpdatedAt = m.CreatedAt
	return m, nil
}

func (r *MemoryChatRepository) GetMessages(_ context.Context, channelID int64, before *int64, limit int) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []chat.Message
	for i := len(r.messages) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.messages[i]
		if m.ChannelID != channelID || m.IsDeleted {
			continue
		}
		if before != nil && m.ID >= *before {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Deactivate marks a membership inactive, keeping the historical row.
func (r *MemoryChatRepository) Deactivate(channelID int64, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.members {
		if r.members[i].ChannelID == channelID && r.members[i].UserID == userID {
			r.members[i].IsActive = false
		}
	}
}

// SoftDelete hides a channel from listings and membership checks.
func (r *MemoryChatRepository) SoftDelete(channelID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.channels[channelID]; ok {
		ch.IsDeleted = true
	}
}

// MessageCount is the number of stored messages, deleted or not.
func (r *MemoryChatRepository) MessageCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages)
}

func (r *MemoryChatRepository) activeLocked(channelID int64, userID int64) bool {
	for _, m := range r.members {
		if m.ChannelID == channelID && m.UserID == userID && m.IsActive {
			return true
		}
	}
	return false
}

func matches(ch chat.Channel, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if strings.Contains(strings.ToLower(ch.Name), needle) {
		return true
	}
	return ch.Description != nil && strings.Contains(strings.ToLower(*ch.Description), needle)
}
