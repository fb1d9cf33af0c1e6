// Package models defines the core data structures for users and missions.
package models

import (
	"strings"
	"time"
)

// User represents a field worker account.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the login name of the user.
	Username string `json:"username"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash []byte `json:"-"`
	// PushTokens holds the device tokens registered for push notifications.
	PushTokens []string `json:"pushTokens"`
	// CreatedAt is the time the account was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the time of the last account change.
	UpdatedAt time.Time `json:"updatedAt"`
}

// Ref returns the display reference of the user.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username}
}

// IsExpoPushToken reports whether token has the shape of an Expo push token.
func IsExpoPushToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// UserRef is a user reference resolved to a display name.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// Status is the lifecycle state of a mission.
type Status string

const (
	// StatusUnopened is the initial state of every mission.
	StatusUnopened Status = "unopened"
	// StatusInProgress marks a mission a worker has started.
	StatusInProgress Status = "in_progress"
	// StatusCompleted marks a mission whose present tasks are all done.
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUnopened, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Rank orders statuses for listing: unopened first, completed last.
func (s Status) Rank() int {
	switch s {
	case StatusUnopened:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	}
	return 3
}
