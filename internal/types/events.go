package types

import "time"

// NotificationEvent is the payload of newNotification.
type NotificationEvent struct {
	Notification Notification `json:"notification"`
	Count        int64        `json:"count"`
}

// UserStatusChange is the payload of userStatusChange.
type UserStatusChange struct {
	UserId   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
	User     Identity  `json:"user"`
}

// OnlineUsers is the payload of onlineUsers, sent right after a room join.
type OnlineUsers struct {
	Room  string    `json:"room"`
	Users []Profile `json:"users"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

func StatusChangeFor(p Profile) UserStatusChange {
	return UserStatusChange{
		UserId:   p.Id,
		IsOnline: p.IsOnline,
		LastSeen: p.LastSeen,
		User:     p.Identity(),
	}
}
