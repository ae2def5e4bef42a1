package server

import (
	"encoding/json"
	"time"

	"github.com/npezzotti/taskpulse/internal/types"
)

// ClientMessage is an inbound frame. Data is decoded per event.
type ClientMessage struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	client *Client         `json:"-"`
}

// ServerMessage is an outbound frame.
type ServerMessage struct {
	Event      string  `json:"event"`
	Data       any     `json:"data"`
	SkipClient *Client `json:"-"`
}

func NotificationMessage(n types.Notification, count int64) *ServerMessage {
	return &ServerMessage{
		Event: types.EventNewNotification,
		Data: types.NotificationEvent{
			Notification: n,
			Count:        count,
		},
	}
}

func StatusChangeMessage(p types.Profile, skip *Client) *ServerMessage {
	return &ServerMessage{
		Event:      types.EventUserStatusChange,
		Data:       types.StatusChangeFor(p),
		SkipClient: skip,
	}
}

func OnlineUsersMessage(room string, users []types.Profile) *ServerMessage {
	if users == nil {
		users = []types.Profile{}
	}

	return &ServerMessage{
		Event: types.EventOnlineUsers,
		Data: types.OnlineUsers{
			Room:  room,
			Users: users,
		},
	}
}

func ErrInvalidMessage() *ServerMessage {
	return &ServerMessage{
		Event: types.EventError,
		Data:  types.ErrorEvent{Message: "invalid message format"},
	}
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
