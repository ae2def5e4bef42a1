package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/npezzotti/taskpulse/internal/types"
)

// Registry tracks live connections per user and a cached presence profile
// for every user seen since process start.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]map[string]time.Time
	profiles map[string]*types.Profile
}

func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[string]map[string]time.Time),
		profiles: make(map[string]*types.Profile),
	}
}

// Connect records connId for the user and marks the user online. The
// returned bool is true when this is the user's first live connection.
func (r *Registry) Connect(user types.Identity, connId string, at time.Time) (types.Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userConns, ok := r.conns[user.Id]
	if !ok {
		userConns = make(map[string]time.Time)
		r.conns[user.Id] = userConns
	}
	wasOnline := len(userConns) > 0
	userConns[connId] = at

	p, ok := r.profiles[user.Id]
	if !ok {
		p = &types.Profile{Id: user.Id}
		r.profiles[user.Id] = p
	}
	p.Name = user.Name
	p.Email = user.Email
	p.IsOnline = true
	p.LastSeen = at

	return *p, !wasOnline
}

// Disconnect removes connId from the user's connection set. The returned
// bool is true when the user has no live connections left.
func (r *Registry) Disconnect(userId, connId string, at time.Time) (types.Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userId]
	if !ok {
		return types.Profile{Id: userId}, false
	}

	userConns := r.conns[userId]
	if _, ok := userConns[connId]; !ok {
		return *p, false
	}

	delete(userConns, connId)
	if len(userConns) > 0 {
		return *p, false
	}

	delete(r.conns, userId)
	p.IsOnline = false
	p.LastSeen = at

	return *p, true
}

func (r *Registry) IsOnline(userId string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[userId]) > 0
}

// OnlineStatusForMany answers for every id, including ids never seen.
func (r *Registry) OnlineStatusForMany(userIds []string) map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make(map[string]bool, len(userIds))
	for _, id := range userIds {
		statuses[id] = len(r.conns[id]) > 0
	}

	return statuses
}

// OnlineProfiles returns a snapshot of all online users ordered by name.
func (r *Registry) OnlineProfiles() []types.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profiles := make([]types.Profile, 0, len(r.conns))
	for id := range r.conns {
		if p, ok := r.profiles[id]; ok {
			profiles = append(profiles, *p)
		}
	}

	sortProfiles(profiles)
	return profiles
}

// ProfilesFor returns the online profiles among userIds, without duplicates.
func (r *Registry) ProfilesFor(userIds []string) []types.Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{}, len(userIds))
	profiles := make([]types.Profile, 0, len(userIds))
	for _, id := range userIds {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if len(r.conns[id]) == 0 {
			continue
		}
		if p, ok := r.profiles[id]; ok {
			profiles = append(profiles, *p)
		}
	}

	sortProfiles(profiles)
	return profiles
}

func (r *Registry) Profile(userId string) (types.Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userId]
	if !ok {
		return types.Profile{}, false
	}

	return *p, true
}

func (r *Registry) ConnectionCount(userId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns[userId])
}

// OnlineCount is the number of distinct users with a live connection.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

func sortProfiles(profiles []types.Profile) {
	sort.Slice(profiles, func(i, j int) bool {
		if profiles[i].Name != profiles[j].Name {
			return profiles[i].Name < profiles[j].Name
		}
		return profiles[i].Id < profiles[j].Id
	})
}
