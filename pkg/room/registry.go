package room

import (
	"sort"
	"strings"
	"sync"
)

// Registry hands out the singleton actor for each room or conversation
// identifier. Actors are created lazily and live for the process; their
// durable state lives in the store regardless.
type Registry struct {
	mu    sync.Mutex
	cfg   Config
	bans  *BanLedger
	rooms map[string]*Actor
	convs map[string]*Actor
}

// NewRegistry builds a registry sharing one global ban ledger across all
// room actors.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:   cfg,
		bans:  NewBanLedger(),
		rooms: map[string]*Actor{},
		convs: map[string]*Actor{},
	}
}

// Room returns the actor owning the given room id, creating it on first
// access.
func (r *Registry) Room(id string) *Actor {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.rooms[id]; ok {
		return a
	}
	a := newActor(id, false, &r.cfg, r.bans)
	r.rooms[id] = a
	return a
}

// Conversation returns the actor owning the private conversation between
// the two users.
func (r *Registry) Conversation(userA, userB string) *Actor {
	id := ConversationID(userA, userB)
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.convs[id]; ok {
		return a
	}
	a := newActor(id, true, &r.cfg, r.bans)
	r.convs[id] = a
	return a
}

// ConversationID derives the deterministic conversation identifier from
// the two participant usernames: lowercased, sorted, comma-joined.
func ConversationID(userA, userB string) string {
	users := []string{strings.ToLower(userA), strings.ToLower(userB)}
	sort.Strings(users)
	return strings.Join(users, ",")
}

// Bans exposes the shared ban ledger.
func (r *Registry) Bans() *BanLedger { return r.bans }

// LiveRooms returns the ids of rooms with a live actor.
func (r *Registry) LiveRooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		out = append(out, id)
	}
	return out
}

// SweepLive runs an expiry sweep over every live room actor and the ban
// ledger. Each room's sweep is serialized with that room's requests.
func (r *Registry) SweepLive() int {
	removed := r.bans.Sweep()
	for _, id := range r.LiveRooms() {
		n, err := r.Room(id).Sweep()
		removed += n
		if err != nil {
			continue
		}
	}
	return removed
}
