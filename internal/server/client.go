package server

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/taskpulse/internal/stats"
	"github.com/npezzotti/taskpulse/internal/types"
	"github.com/teris-io/shortid"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1024
	sendBufferSize = 256
)

type Client struct {
	id           string
	conn         *websocket.Conn
	hub          *Hub
	log          *zap.Logger
	stats        stats.StatsProvider
	user         types.Identity
	connectedAt  time.Time
	send         chan *ServerMessage
	pingInterval time.Duration
	pongWait     time.Duration
	// rooms is owned by the hub goroutine
	rooms    map[string]*Room
	stop     chan struct{}
	stopOnce sync.Once
}

// NewConnectionId returns a short random id for a websocket connection.
func NewConnectionId() (string, error) {
	return shortid.Generate()
}

func NewClient(id string, user types.Identity, conn *websocket.Conn, hub *Hub, l *zap.Logger) *Client {
	return &Client{
		id:           id,
		conn:         conn,
		hub:          hub,
		log:          l.With(zap.String("conn_id", id), zap.String("user_id", user.Id)),
		stats:        hub.stats,
		user:         user,
		connectedAt:  Now(),
		send:         make(chan *ServerMessage, sendBufferSize),
		pingInterval: hub.opts.PingInterval,
		pongWait:     hub.opts.PongWait,
		rooms:        make(map[string]*Room),
		stop:         make(chan struct{}),
	}
}

func (c *Client) Id() string {
	return c.id
}

func (c *Client) User() types.Identity {
	return c.user
}

func (c *Client) Write() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debug("write exiting")
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := serializeMessage(msg)
			if err != nil {
				c.log.Error("failed to serialize message", zap.Error(err))
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait),
			)
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Debug("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Info("ws read", zap.Error(err))
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug("error parsing message", zap.Error(err))
			c.queueMessage(ErrInvalidMessage())
			continue
		}

		msg.client = c
		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *ClientMessage) {
	var room func(string) string
	join := true

	switch msg.Event {
	case types.EventJoinOrganization:
		room = types.OrganizationRoom
	case types.EventLeaveOrganization:
		room, join = types.OrganizationRoom, false
	case types.EventJoinProject:
		room = types.ProjectRoom
	case types.EventLeaveProject:
		room, join = types.ProjectRoom, false
	default:
		c.log.Debug("ignoring unknown event", zap.String("event", msg.Event))
		return
	}

	id, ok := roomId(msg.Data)
	if !ok {
		c.log.Debug("ignoring malformed room request", zap.String("event", msg.Event))
		return
	}

	if join {
		c.hub.Join(c, room(id))
	} else {
		c.hub.Leave(c, room(id))
	}
}

// roomId decodes a room request payload, which must be a non-empty string.
func roomId(data json.RawMessage) (string, bool) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", false
	}

	id = strings.TrimSpace(id)
	return id, id != ""
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Warn("failed to send message to client, channel is full")
		if c.stats != nil {
			c.stats.Incr(stats.MessagesDroppedSlowPeer)
		}
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Info("write message", zap.Error(err))
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.hub.Unregister(c)
	c.stopClient()
}

func (c *Client) addRoom(r *Room) {
	c.rooms[r.name] = r
}

func (c *Client) delRoom(name string) {
	delete(c.rooms, name)
}
