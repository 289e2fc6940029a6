package chat

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository is the message store contract: paginated message history and
// the compact chat list, always scoped to one user. All SQL lives in the
// concrete implementation.
type Repository interface {
	ListChats(ctx context.Context, userID int64) ([]ChatListItem, error)
	FetchMessages(ctx context.Context, chatID, userID int64, limit, offset int) ([]Message, error)
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new chat repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// ListChats returns the compact chat list for a user, newest chats first.
// Peer name and avatar are resolved per row for 1:1 chats.
func (r *repository) ListChats(ctx context.Context, userID int64) ([]ChatListItem, error) {
	query := `SELECT
	            c.id AS chat_id,
	            c.is_group,
	            c.chat_name,
	            (SELECT u.username
	             FROM chat_participants cp2
	             JOIN users u ON u.id = cp2.user_id
	             WHERE cp2.chat_id = c.id AND cp2.user_id <> ?
	             LIMIT 1) AS peer_username,
	            (SELECT u.avatar_url
	             FROM chat_participants cp2
	             JOIN users u ON u.id = cp2.user_id
	             WHERE cp2.chat_id = c.id AND cp2.user_id <> ?
	             LIMIT 1) AS peer_avatar
	          FROM chats c
	          JOIN chat_participants cp_me ON cp_me.chat_id = c.id AND cp_me.user_id = ?
	          ORDER BY c.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var items []ChatListItem
	for rows.Next() {
		var (
			item         ChatListItem
			chatName     *string
			peerUsername *string
			peerAvatar   *string
		)
		if err := rows.Scan(&item.ChatID, &item.IsGroup, &chatName, &peerUsername, &peerAvatar); err != nil {
			return nil, fmt.Errorf("scanning chat row: %w", err)
		}

		if item.IsGroup {
			if chatName != nil {
				item.DisplayName = *chatName
			}
		} else {
			if peerUsername != nil {
				item.DisplayName = *peerUsername
			}
			item.AvatarURL = peerAvatar
		}

		items = append(items, item)
	}

	return items, rows.Err()
}

// FetchMessages returns a page of a chat's message history, ascending by
// timestamp so clients render older to newer. The delivery status joined
// in is the one recorded for the requesting user.
func (r *repository) FetchMessages(ctx context.Context, chatID, userID int64, limit, offset int) ([]Message, error) {
	query := `SELECT
	            m.id AS message_id,
	            m.chat_id,
	            m.sender_id,
	            u.username AS sender_username,
	            m.content,
	            m.message_type,
	            m.reply_to,
	            m.edited,
	            m.timestamp,
	            ms.status
	          FROM messages m
	          LEFT JOIN users u ON u.id = m.sender_id
	          LEFT JOIN message_status ms ON ms.message_id = m.id AND ms.user_id = ?
	          WHERE m.chat_id = ?
	          ORDER BY m.timestamp ASC
	          LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, chatID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID,
			&m.ChatID,
			&m.SenderID,
			&m.SenderUsername,
			&m.Content,
			&m.MessageType,
			&m.ReplyTo,
			&m.Edited,
			&m.Timestamp,
			&m.Status,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
