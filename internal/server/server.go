package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/npezzotti/taskpulse/internal/presence"
	"github.com/npezzotti/taskpulse/internal/stats"
	"github.com/npezzotti/taskpulse/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultPingInterval = 25 * time.Second
	DefaultPongWait     = 60 * time.Second
)

var ErrHubStopped = errors.New("hub stopped")

// PresenceScope selects who receives userStatusChange events.
type PresenceScope string

const (
	// ScopeGlobal sends presence changes to every connected client.
	ScopeGlobal PresenceScope = "global"
	// ScopeRooms sends presence changes only to clients sharing an
	// organization or project room with the user.
	ScopeRooms PresenceScope = "rooms"
)

func (s PresenceScope) Valid() bool {
	return s == ScopeGlobal || s == ScopeRooms
}

type Options struct {
	Scope        PresenceScope
	PingInterval time.Duration
	PongWait     time.Duration
}

type roomRequest struct {
	client *Client
	room   string
	leave  bool
}

type emitRequest struct {
	room string
	msg  *ServerMessage
}

// Hub owns all connection and room state. Every mutation runs on the Run
// goroutine; the registry is shared with readers on other goroutines.
type Hub struct {
	log            *zap.Logger
	registry       *presence.Registry
	stats          stats.StatsProvider
	opts           Options
	clients        map[*Client]struct{}
	rooms          map[string]*Room
	// announced maps a user id to the rooms told the user is online
	announced      map[string]map[string]struct{}
	registerChan   chan *Client
	unregisterChan chan *Client
	// joins and leaves share a channel to keep per-connection order
	roomChan       chan *roomRequest
	emitChan       chan *emitRequest
	stop           chan struct{}
	stopOnce       sync.Once
	done           chan struct{}
}

func NewHub(logger *zap.Logger, registry *presence.Registry, su stats.StatsProvider, opts Options) (*Hub, error) {
	if opts.Scope == "" {
		opts.Scope = ScopeGlobal
	}
	if !opts.Scope.Valid() {
		return nil, fmt.Errorf("invalid presence scope %q", opts.Scope)
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = DefaultPingInterval
	}
	if opts.PongWait <= 0 {
		opts.PongWait = DefaultPongWait
	}
	if opts.PingInterval >= opts.PongWait {
		return nil, fmt.Errorf("ping interval %s must be shorter than pong wait %s", opts.PingInterval, opts.PongWait)
	}

	for _, m := range []string{stats.NumActiveConnections, stats.NumOnlineUsers, stats.NumActiveRooms, stats.MessagesDroppedSlowPeer} {
		su.RegisterMetric(m)
	}

	return &Hub{
		log:            logger,
		registry:       registry,
		stats:          su,
		opts:           opts,
		clients:        make(map[*Client]struct{}),
		rooms:          make(map[string]*Room),
		announced:      make(map[string]map[string]struct{}),
		registerChan:   make(chan *Client),
		unregisterChan: make(chan *Client, 256),
		roomChan:       make(chan *roomRequest, 256),
		emitChan:       make(chan *emitRequest, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (h *Hub) Registry() *presence.Registry {
	return h.registry
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.registerChan:
			h.handleRegister(c)
		case c := <-h.unregisterChan:
			h.handleUnregister(c)
		case req := <-h.roomChan:
			if req.leave {
				h.handleLeave(req)
			} else {
				h.handleJoin(req)
			}
		case req := <-h.emitChan:
			h.handleEmit(req)
		case <-h.stop:
			h.handleShutdown()
			close(h.done)
			return
		}
	}
}

// Register adds an authenticated client. It returns once the hub has
// recorded the connection, so room requests from the client are ordered
// after it.
func (h *Hub) Register(c *Client) error {
	select {
	case h.registerChan <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregisterChan <- c:
	case <-h.done:
	}
}

func (h *Hub) Join(c *Client, room string) {
	select {
	case h.roomChan <- &roomRequest{client: c, room: room}:
	case <-h.done:
	}
}

func (h *Hub) Leave(c *Client, room string) {
	select {
	case h.roomChan <- &roomRequest{client: c, room: room, leave: true}:
	case <-h.done:
	}
}

// EmitToRoom queues event for every connection in room. Rooms without
// connections drop the event.
func (h *Hub) EmitToRoom(room, event string, data any) {
	select {
	case h.emitChan <- &emitRequest{room: room, msg: &ServerMessage{Event: event, Data: data}}:
	case <-h.done:
	}
}

func (h *Hub) Shutdown(ctx context.Context) error {
	h.stopOnce.Do(func() {
		close(h.stop)
	})

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.clients[c] = struct{}{}
	h.stats.Incr(stats.NumActiveConnections)

	profile, first := h.registry.Connect(c.user, c.id, c.connectedAt)
	h.joinRoom(c, types.UserRoom(c.user.Id))

	h.log.Info("client connected",
		zap.String("conn_id", c.id),
		zap.String("user_id", c.user.Id),
		zap.Int("user_connections", h.registry.ConnectionCount(c.user.Id)),
	)

	if !first {
		return
	}

	h.stats.Incr(stats.NumOnlineUsers)
	if h.opts.Scope == ScopeGlobal {
		h.broadcastAll(StatusChangeMessage(profile, c))
	}
}

func (h *Hub) handleUnregister(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	h.stats.Decr(stats.NumActiveConnections)

	for name := range c.rooms {
		h.leaveRoom(c, name)
	}

	profile, last := h.registry.Disconnect(c.user.Id, c.id, Now())
	c.stopClient()
	announced := h.announced[c.user.Id]
	if last {
		delete(h.announced, c.user.Id)
	}

	h.log.Info("client disconnected",
		zap.String("conn_id", c.id),
		zap.String("user_id", c.user.Id),
		zap.Bool("user_offline", last),
	)

	if !last {
		return
	}

	h.stats.Decr(stats.NumOnlineUsers)
	msg := StatusChangeMessage(profile, nil)
	if h.opts.Scope == ScopeGlobal {
		h.broadcastAll(msg)
	} else {
		h.broadcastRooms(msg, announced)
	}
}

func (h *Hub) handleJoin(req *roomRequest) {
	c := req.client
	if _, ok := h.clients[c]; !ok {
		// the client disconnected before its join was processed
		return
	}

	firstForUser := true
	if r, ok := h.rooms[req.room]; ok {
		firstForUser = !r.hasUser(c.user.Id)
	}

	r, added := h.joinRoom(c, req.room)
	if !added {
		h.log.Debug("client already in room", zap.String("conn_id", c.id), zap.String("room", req.room))
		return
	}

	c.queueMessage(OnlineUsersMessage(req.room, h.snapshot(r)))

	if h.opts.Scope == ScopeRooms && firstForUser {
		if profile, ok := h.registry.Profile(c.user.Id); ok {
			r.broadcast(StatusChangeMessage(profile, c))
		}
	}
	if h.opts.Scope == ScopeRooms && !types.IsUserRoom(req.room) {
		h.announce(c.user.Id, req.room)
	}
}

func (h *Hub) handleLeave(req *roomRequest) {
	if !h.leaveRoom(req.client, req.room) {
		h.log.Debug("client not in room", zap.String("conn_id", req.client.id), zap.String("room", req.room))
	}
}

func (h *Hub) handleEmit(req *emitRequest) {
	r, ok := h.rooms[req.room]
	if !ok {
		return
	}

	n := r.broadcast(req.msg)
	h.log.Debug("emitted event", zap.String("room", req.room), zap.String("event", req.msg.Event), zap.Int("delivered", n))
}

func (h *Hub) handleShutdown() {
	h.log.Info("shutting down hub", zap.Int("clients", len(h.clients)))
	now := Now()
	for c := range h.clients {
		h.registry.Disconnect(c.user.Id, c.id, now)
		c.stopClient()
	}

	clear(h.clients)
	clear(h.rooms)
	clear(h.announced)
}

func (h *Hub) joinRoom(c *Client, name string) (*Room, bool) {
	r, ok := h.rooms[name]
	if !ok {
		r = newRoom(name)
		h.rooms[name] = r
		h.stats.Incr(stats.NumActiveRooms)
	}

	if !r.addClient(c) {
		return r, false
	}

	c.addRoom(r)
	return r, true
}

func (h *Hub) leaveRoom(c *Client, name string) bool {
	r, ok := h.rooms[name]
	if !ok {
		return false
	}

	removed := r.removeClient(c)
	c.delRoom(name)

	if r.isEmpty() {
		delete(h.rooms, name)
		h.stats.Decr(stats.NumActiveRooms)
	}

	return removed
}

// snapshot lists the online users a joining client should see.
func (h *Hub) snapshot(r *Room) []types.Profile {
	if h.opts.Scope == ScopeGlobal {
		return h.registry.OnlineProfiles()
	}

	return h.registry.ProfilesFor(r.userIds())
}

func (h *Hub) broadcastAll(msg *ServerMessage) {
	for c := range h.clients {
		if c == msg.SkipClient {
			continue
		}
		c.queueMessage(msg)
	}
}

func (h *Hub) announce(userId, room string) {
	rooms, ok := h.announced[userId]
	if !ok {
		rooms = make(map[string]struct{})
		h.announced[userId] = rooms
	}
	rooms[room] = struct{}{}
}

// broadcastRooms sends msg once to every client in any of rooms. Rooms that
// no longer exist are skipped.
func (h *Hub) broadcastRooms(msg *ServerMessage, rooms map[string]struct{}) {
	seen := make(map[*Client]struct{})
	for name := range rooms {
		r, ok := h.rooms[name]
		if !ok {
			continue
		}

		for c := range r.clients {
			if _, dup := seen[c]; dup || c == msg.SkipClient {
				continue
			}
			seen[c] = struct{}{}
			c.queueMessage(msg)
		}
	}
}
