package server

// Room is a named broadcast group of live connections. Rooms are owned by
// the hub goroutine and are never touched concurrently.
type Room struct {
	name    string
	clients map[*Client]struct{}
	// userMap groups the room's clients by user id
	userMap map[string]map[*Client]struct{}
}

func newRoom(name string) *Room {
	return &Room{
		name:    name,
		clients: make(map[*Client]struct{}),
		userMap: make(map[string]map[*Client]struct{}),
	}
}

// addClient reports false when c was already a member.
func (r *Room) addClient(c *Client) bool {
	if _, ok := r.clients[c]; ok {
		return false
	}

	r.clients[c] = struct{}{}
	if r.userMap[c.user.Id] == nil {
		r.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	r.userMap[c.user.Id][c] = struct{}{}

	return true
}

// removeClient reports false when c was not a member.
func (r *Room) removeClient(c *Client) bool {
	if _, ok := r.clients[c]; !ok {
		return false
	}

	delete(r.clients, c)
	if userClients, ok := r.userMap[c.user.Id]; ok {
		delete(userClients, c)
		if len(userClients) == 0 {
			delete(r.userMap, c.user.Id)
		}
	}

	return true
}

func (r *Room) hasUser(userId string) bool {
	return len(r.userMap[userId]) > 0
}

func (r *Room) userIds() []string {
	ids := make([]string, 0, len(r.userMap))
	for id := range r.userMap {
		ids = append(ids, id)
	}

	return ids
}

func (r *Room) isEmpty() bool {
	return len(r.clients) == 0
}

func (r *Room) broadcast(msg *ServerMessage) int {
	delivered := 0
	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		if client.queueMessage(msg) {
			delivered++
		}
	}

	return delivered
}
