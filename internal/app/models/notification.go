package models

import "time"

// NotificationType identifies the lifecycle event behind a notification
type NotificationType string

const (
	NotificationRoomCreated  NotificationType = "ROOM_CREATED"
	NotificationRoomAborted  NotificationType = "ROOM_ABORTED"
	NotificationVoteRequest  NotificationType = "VOTE_REQUEST"
	NotificationVoteReminder NotificationType = "VOTE_REMINDER"
	NotificationRoomClosed   NotificationType = "ROOM_CLOSED"
)

// Notification is an in-app notification for one user
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UID       string           `json:"uid" db:"uid"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Body      string           `json:"body" db:"body"`
	URL       string           `json:"url" db:"url"`
	DedupeKey string           `json:"-" db:"dedupe_key"`
	Unread    bool             `json:"unread" db:"unread"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
	ReadAt    *time.Time       `json:"readAt,omitempty" db:"read_at"`
}

// PushToken is one registered push endpoint of a user
type PushToken struct {
	UID       string    `json:"uid" db:"uid"`
	Token     string    `json:"token" db:"token"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
