package presence

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/npezzotti/taskpulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = types.Identity{Id: "u1", Name: "alice", Email: "alice@example.com"}
	bob   = types.Identity{Id: "u2", Name: "bob", Email: "bob@example.com"}
)

func TestRegistry_ConnectDisconnect(t *testing.T) {
	r := NewRegistry()
	t0 := time.Now().UTC()

	p, first := r.Connect(alice, "c1", t0)
	assert.True(t, first, "expected first connection to report a transition")
	assert.True(t, p.IsOnline, "expected profile to be online")
	assert.Equal(t, alice.Name, p.Name)
	assert.Equal(t, alice.Email, p.Email)
	assert.True(t, r.IsOnline(alice.Id))

	_, first = r.Connect(alice, "c2", t0.Add(time.Second))
	assert.False(t, first, "expected second tab not to report a transition")
	assert.Equal(t, 2, r.ConnectionCount(alice.Id))

	t1 := t0.Add(2 * time.Second)
	p, last := r.Disconnect(alice.Id, "c1", t1)
	assert.False(t, last, "expected user to remain online with another tab open")
	assert.True(t, p.IsOnline)
	assert.True(t, r.IsOnline(alice.Id))

	t2 := t0.Add(3 * time.Second)
	p, last = r.Disconnect(alice.Id, "c2", t2)
	assert.True(t, last, "expected last disconnect to report a transition")
	assert.False(t, p.IsOnline)
	assert.Equal(t, t2, p.LastSeen, "expected lastSeen to be stamped on going offline")
	assert.False(t, r.IsOnline(alice.Id))
	assert.Equal(t, 0, r.OnlineCount())
}

func TestRegistry_ConnectRefreshesProfile(t *testing.T) {
	r := NewRegistry()
	r.Connect(alice, "c1", time.Now())

	renamed := alice
	renamed.Name = "alice b."
	renamed.Email = "ab@example.com"
	r.Connect(renamed, "c2", time.Now())

	p, ok := r.Profile(alice.Id)
	require.True(t, ok)
	assert.Equal(t, "alice b.", p.Name)
	assert.Equal(t, "ab@example.com", p.Email)
}

func TestRegistry_DisconnectUnknown(t *testing.T) {
	r := NewRegistry()

	_, last := r.Disconnect("nobody", "c1", time.Now())
	assert.False(t, last, "expected unknown user disconnect to be a no-op")

	r.Connect(alice, "c1", time.Now())
	_, last = r.Disconnect(alice.Id, "stale", time.Now())
	assert.False(t, last, "expected unknown connection id to be a no-op")
	assert.True(t, r.IsOnline(alice.Id))

	r.Disconnect(alice.Id, "c1", time.Now())
	_, last = r.Disconnect(alice.Id, "c1", time.Now())
	assert.False(t, last, "expected repeated disconnect to be a no-op")
}

func TestRegistry_OnlineIffConnections(t *testing.T) {
	r := NewRegistry()
	rng := rand.New(rand.NewSource(42))
	live := map[string]struct{}{}

	for i := range 500 {
		if len(live) > 0 && rng.Intn(2) == 0 {
			for id := range live {
				r.Disconnect(alice.Id, id, time.Now())
				delete(live, id)
				break
			}
		} else {
			id := fmt.Sprintf("c%d", i)
			r.Connect(alice, id, time.Now())
			live[id] = struct{}{}
		}

		require.Equal(t, len(live) > 0, r.IsOnline(alice.Id), "step %d: online must match live connection count %d", i, len(live))
		require.Equal(t, len(live), r.ConnectionCount(alice.Id))

		p, _ := r.Profile(alice.Id)
		require.Equal(t, len(live) > 0, p.IsOnline, "step %d: cached profile must agree with registry", i)
	}
}

func TestRegistry_OnlineStatusForMany(t *testing.T) {
	r := NewRegistry()

	statuses := r.OnlineStatusForMany(nil)
	assert.NotNil(t, statuses)
	assert.Empty(t, statuses)

	statuses = r.OnlineStatusForMany([]string{"x", "y"})
	assert.Equal(t, map[string]bool{"x": false, "y": false}, statuses)

	r.Connect(alice, "c1", time.Now())
	r.Connect(bob, "c2", time.Now())
	r.Disconnect(bob.Id, "c2", time.Now())

	statuses = r.OnlineStatusForMany([]string{alice.Id, bob.Id, "ghost"})
	assert.Equal(t, map[string]bool{alice.Id: true, bob.Id: false, "ghost": false}, statuses)
}

func TestRegistry_OnlineProfiles(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.OnlineProfiles())

	r.Connect(bob, "c1", time.Now())
	r.Connect(alice, "c2", time.Now())
	r.Connect(alice, "c3", time.Now())

	profiles := r.OnlineProfiles()
	require.Len(t, profiles, 2, "expected one entry per user regardless of tabs")
	assert.Equal(t, alice.Id, profiles[0].Id, "expected profiles sorted by name")
	assert.Equal(t, bob.Id, profiles[1].Id)

	r.Disconnect(bob.Id, "c1", time.Now())
	profiles = r.OnlineProfiles()
	require.Len(t, profiles, 1)
	assert.Equal(t, alice.Id, profiles[0].Id)
	assert.Equal(t, 1, r.OnlineCount())
}

func TestRegistry_ProfilesFor(t *testing.T) {
	r := NewRegistry()
	r.Connect(alice, "c1", time.Now())
	r.Connect(bob, "c2", time.Now())
	r.Disconnect(bob.Id, "c2", time.Now())

	profiles := r.ProfilesFor([]string{alice.Id, alice.Id, bob.Id, "ghost"})
	require.Len(t, profiles, 1, "expected offline and duplicate ids to be excluded")
	assert.Equal(t, alice.Id, profiles[0].Id)
}
