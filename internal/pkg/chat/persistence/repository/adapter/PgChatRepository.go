package adapter

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	chat "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/application/domain"
	repository "github.com/bharatsonwane/team-orbit-sub001/internal/pkg/chat/persistence/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the chat tables inside the pool's tenant schema.
// The pool's search_path decides which schema receives them.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("PgChatRepository: nil pool")
	}
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}

// PgChatRepository implements repository.ChatRepository on one tenant pool.
type PgChatRepository struct {
	pool *pgxpool.Pool
}

var _ repository.ChatRepository = (*PgChatRepository)(nil)

func NewPgChatRepository(pool *pgxpool.Pool) *PgChatRepository {
	return &PgChatRepository{pool: pool}
}

const channelColumns = `c.id, c.name, c.description, c.image, c.type, c.created_by, c.created_at, c.updated_at`

func (r *PgChatRepository) CreateChannel(ctx context.Context, ch chat.Channel, members []chat.Member) (chat.Channel, error) {
	if r == nil || r.pool == nil {
		return chat.Channel{}, errors.New("PgChatRepository: nil pool")
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO chat_channels (name, description, image, type, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING id, created_at, updated_at
		`, ch.Name, ch.Description, ch.Image, string(ch.Type), ch.CreatedBy, ch.CreatedAt).Scan(&ch.ID, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}

		for _, m := range members {
			if _, err := tx.Exec(ctx, `
				INSERT INTO chat_channel_members (channel_id, user_id, is_admin, is_active, joined_at)
				VALUES ($1, $2, $3, true, $4)
			`, ch.ID, m.UserID, m.IsAdmin, ch.CreatedAt); err != nil {
				return fmt.Errorf("insert member %d: %w", m.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return chat.Channel{}, err
	}
	return ch, nil
}

func (r *PgChatRepository) ListChannelsForUser(ctx context.Context, q repository.ChannelQuery) ([]chat.Channel, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}

	var pattern, typ *string
	if q.Search != nil && strings.TrimSpace(*q.Search) != "" {
		p := "%" + escapeLike(strings.TrimSpace(*q.Search)) + "%"
		pattern = &p
	}
	if q.Type != nil {
		t := string(*q.Type)
		typ = &t
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+channelColumns+`
		FROM chat_channels c
		JOIN chat_channel_members m
		  ON m.channel_id = c.id AND m.user_id = $1 AND m.is_active
		WHERE NOT c.is_deleted
		  AND ($2::text IS NULL OR c.name ILIKE $2 ESCAPE '\' OR c.description ILIKE $2 ESCAPE '\')
		  AND ($3::text IS NULL OR c.type = $3)
		ORDER BY c.updated_at DESC, c.id DESC
		LIMIT $4 OFFSET $5
	`, q.UserID, pattern, typ, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []chat.Channel
	for rows.Next() {
		var (
			ch          chat.Channel
			channelType string
		)
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description, &ch.Image, &channelType, &ch.CreatedBy, &ch.CreatedAt, &ch.UpdatedAt); err != nil {
			return nil, err
		}
		ch.Type = chat.ChannelType(channelType)
		channels = append(channels, ch)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return channels, nil
}

func (r *PgChatRepository) ListChannelIDsForUser(ctx context.Context, userID int64, afterID int64, limit int) ([]int64, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT c.id
		FROM chat_channels c
		JOIN chat_channel_members m
		  ON m.channel_id = c.id AND m.user_id = $1 AND m.is_active
		WHERE NOT c.is_deleted AND c.id > $2
		ORDER BY c.id ASC
		LIMIT $3
	`, userID, afterID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *PgChatRepository) IsActiveMember(ctx context.Context, channelID int64, userID int64) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New("PgChatRepository: nil pool")
	}
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM chat_channel_members m
			JOIN chat_channels c ON c.id = m.channel_id
			WHERE m.channel_id = $1 AND m.user_id = $2 AND m.is_active AND NOT c.is_deleted
		)
	`, channelID, userID).Scan(&ok)
	return ok, err
}

func (r *PgChatRepository) ListActiveMemberIDs(ctx context.Context, channelID int64) ([]int64, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM chat_channel_members
		WHERE channel_id = $1 AND is_active
		ORDER BY is_admin DESC, user_id ASC
	`, channelID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *PgChatRepository) SaveMessage(ctx context.Context, m chat.Message) (chat.Message, error) {
	if r == nil || r.pool == nil {
		return chat.Message{}, errors.New("PgChatRepository: nil pool")
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if m.ReplyToID != nil {
			var sameChannel bool
			if err := tx.QueryRow(ctx, `
				SELECT EXISTS (SELECT 1 FROM chat_messages WHERE id = $1 AND channel_id = $2 AND NOT is_deleted)
			`, *m.ReplyToID, m.ChannelID).Scan(&sameChannel); err != nil {
				return err
			}
			if !sameChannel {
				return chat.ErrInvalidReply
			}
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO chat_messages (channel_id, sender_id, text, media_url, reply_to_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING id, created_at, updated_at
		`, m.ChannelID, m.SenderID, m.Text, m.MediaURL, m.ReplyToID, m.CreatedAt).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}

		_, err := tx.Exec(ctx, `UPDATE chat_channels SET updated_at = $2 WHERE id = $1`, m.ChannelID, m.CreatedAt)
		return err
	})
	if err != nil {
		return chat.Message{}, err
	}
	return m, nil
}

func (r *PgChatRepository) GetMessages(ctx context.Context, channelID int64, before *int64, limit int) ([]chat.Message, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgChatRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, channel_id, sender_id, text, media_url, reply_to_id, created_at, updated_at
		FROM chat_messages
		WHERE channel_id = $1 AND NOT is_deleted AND ($2::bigint IS NULL OR id < $2)
		ORDER BY id DESC
		LIMIT $3
	`, channelID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.Text, &msg.MediaURL, &msg.ReplyToID, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
