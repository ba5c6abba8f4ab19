package router

import (
	"errors"
	"fmt"
	"log"
	"maps"
	"sync"

	"hashring/internal/ring"
)

var (
	// ErrInvalidMember is returned for a member without an id or address.
	ErrInvalidMember = errors.New("invalid member")
	// ErrAddrConflict is returned when an id is added with a second address.
	ErrAddrConflict = errors.New("member already registered with another address")
)

// Member is a ring member. Weight and Points are only used when adding: a
// non-empty Points places the member explicitly, otherwise Weight control
// points are generated (0 selects the ring default).
type Member struct {
	ID     string
	Addr   string
	Weight int
	Points []int
}

// Router maps keys to members through a consistent hash ring keyed by
// member id.
type Router struct {
	mu    sync.RWMutex
	ring  *ring.Ring[string]
	addrs map[string]string // id -> addr
}

// New creates a router over an empty ring built with opts.
func New(opts ring.Options[string]) *Router {
	return &Router{
		ring:  ring.New(opts),
		addrs: make(map[string]string),
	}
}

// AddMember adds one ring entry for m. Adding an id that is already present
// adds another entry, which raises its share of keys.
func (rt *Router) AddMember(m Member) error {
	if m.ID == "" || m.Addr == "" {
		return fmt.Errorf("%w: id and addr cannot be empty", ErrInvalidMember)
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	return rt.addLocked(m)
}

func (rt *Router) addLocked(m Member) error {
	if addr, ok := rt.addrs[m.ID]; ok && addr != m.Addr {
		return fmt.Errorf("%w: %s is at %s, not %s", ErrAddrConflict, m.ID, addr, m.Addr)
	}

	if len(m.Points) > 0 {
		rt.ring.AddPoints(m.ID, m.Points...)
	} else if err := rt.ring.AddWeighted(m.ID, m.Weight); err != nil {
		return err
	}

	rt.addrs[m.ID] = m.Addr
	log.Printf("[router] added member %s at %s", m.ID, m.Addr)
	return nil
}

// RemoveMember removes every entry for id. It reports whether the id was
// present; removing an unknown id is not an error.
func (rt *Router) RemoveMember(id string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	return rt.removeLocked(id)
}

func (rt *Router) removeLocked(id string) bool {
	if _, ok := rt.addrs[id]; !ok {
		return false
	}
	rt.ring.Remove(id)
	delete(rt.addrs, id)
	log.Printf("[router] removed member %s", id)
	return true
}

// SetMembers reconciles the table with a complete member list. Ids missing
// from members are removed, new ids are added with every entry listed for
// them, and ids whose address changed are replaced. Ids that are already
// present with the same address keep their control points. The changes are
// staged on a copy of the ring, so on error the table is left as it was.
func (rt *Router) SetMembers(members []Member) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	want := make(map[string]string, len(members))
	for _, m := range members {
		if m.ID == "" || m.Addr == "" {
			return fmt.Errorf("%w: id and addr cannot be empty", ErrInvalidMember)
		}
		if addr, ok := want[m.ID]; ok && addr != m.Addr {
			return fmt.Errorf("%w: %s listed at %s and %s", ErrAddrConflict, m.ID, addr, m.Addr)
		}
		want[m.ID] = m.Addr
	}

	next := &Router{
		ring:  rt.ring.Clone(),
		addrs: maps.Clone(rt.addrs),
	}

	kept := make(map[string]bool, len(next.addrs))
	for id, addr := range rt.addrs {
		if wantAddr, ok := want[id]; ok && wantAddr == addr {
			kept[id] = true
			continue
		}
		next.removeLocked(id)
	}

	for _, m := range members {
		if kept[m.ID] {
			continue
		}
		if err := next.addLocked(m); err != nil {
			return fmt.Errorf("add member %s: %w", m.ID, err)
		}
	}

	rt.ring, rt.addrs = next.ring, next.addrs
	return nil
}

// Lookup returns up to count distinct members for key, primary first. A
// count below 1 is treated as 1. An empty ring yields no members.
func (rt *Router) Lookup(key string, count int) []Member {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	if count < 1 {
		count = 1
	}

	var ids []string
	if count == 1 {
		if id, ok := rt.ring.Get(key); ok {
			ids = []string{id}
		}
	} else {
		ids = rt.ring.GetN(key, count)
	}

	members := make([]Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, Member{ID: id, Addr: rt.addrs[id]})
	}
	return members
}

// Members returns one member per ring entry.
func (rt *Router) Members() []Member {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	ids := rt.ring.Nodes()
	members := make([]Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, Member{ID: id, Addr: rt.addrs[id]})
	}
	return members
}

// MemberPoints returns the control points owned by id.
func (rt *Router) MemberPoints(id string) ([]int, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	return rt.ring.Points(id)
}

// Load returns the number of control points owned by each member id.
func (rt *Router) Load() map[string]int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	return rt.ring.Distribution()
}
