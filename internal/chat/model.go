// Package chat exposes the message store: read-only chat and message
// history queries for the authenticated user. The auth core treats this
// package as an external collaborator behind a narrow interface.
package chat

import "time"

// ChatListItem is one row of the compact chat list. For 1:1 chats the
// display name and avatar come from the other participant; for groups
// the display name is the chat's own name and the avatar is empty.
type ChatListItem struct {
	ChatID      int64   `json:"chatId"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl"`
	IsGroup     bool    `json:"isGroup"`
}

// Message is one message in a chat's history, including the per-user
// delivery status for the requesting user.
type Message struct {
	ID             int64     `json:"id"`
	ChatID         int64     `json:"chatId"`
	SenderID       *int64    `json:"senderId"`
	SenderUsername *string   `json:"senderUsername"`
	Content        string    `json:"content"`
	MessageType    string    `json:"messageType"`
	ReplyTo        *int64    `json:"replyTo"`
	Edited         bool      `json:"edited"`
	Timestamp      time.Time `json:"timestamp"`
	Status         *string   `json:"status"`
}
