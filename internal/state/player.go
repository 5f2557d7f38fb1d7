package state

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pixil98/go-errors"
	"github.com/pixil98/servercore/internal/rank"
)

// Player is the per-actor authorization state: assigned ranks plus direct
// permission overrides. It always includes the default rank.
type Player struct {
	uuid        uuid.UUID
	ranks       map[string]*rank.Rank
	permissions map[rank.Permission]struct{}
}

func newPlayer(id uuid.UUID, def *rank.Rank) *Player {
	return &Player{
		uuid:        id,
		ranks:       map[string]*rank.Rank{def.Id(): def},
		permissions: map[rank.Permission]struct{}{},
	}
}

func (p *Player) Uuid() uuid.UUID {
	return p.uuid
}

// HasPermission reports whether any assigned rank grants perm, or any direct
// permission is an ancestor-or-equal of it.
func (p *Player) HasPermission(perm rank.Permission) bool {
	for _, r := range p.ranks {
		if r.HasPermission(perm) {
			return true
		}
	}
	for owned := range p.permissions {
		if owned.Grants(perm) {
			return true
		}
	}
	return false
}

func (p *Player) HasRank(id string) bool {
	_, ok := p.ranks[id]
	return ok
}

// Ranks returns the player's assigned ranks, default included.
func (p *Player) Ranks() []*rank.Rank {
	ranks := make([]*rank.Rank, 0, len(p.ranks))
	for _, r := range p.ranks {
		ranks = append(ranks, r)
	}
	return ranks
}

// HighestRank resolves the best-priority rank for display purposes. The
// default rank is the floor, so it wins only when nothing else is assigned.
func (p *Player) HighestRank() *rank.Rank {
	var best *rank.Rank
	for _, r := range p.ranks {
		if best == nil || r.Priority() > best.Priority() {
			best = r
		}
	}
	return best
}

// DirectPermissions returns the player's rank-independent overrides.
func (p *Player) DirectPermissions() []rank.Permission {
	perms := make([]rank.Permission, 0, len(p.permissions))
	for perm := range p.permissions {
		perms = append(perms, perm)
	}
	return perms
}

// EffectivePermissions is the union of rank grants and direct overrides,
// the payload for the init sync on join.
func (p *Player) EffectivePermissions() []rank.Permission {
	seen := map[rank.Permission]struct{}{}
	for _, r := range p.ranks {
		for _, perm := range r.Permissions() {
			seen[perm] = struct{}{}
		}
	}
	for perm := range p.permissions {
		seen[perm] = struct{}{}
	}

	perms := make([]rank.Permission, 0, len(seen))
	for perm := range seen {
		perms = append(perms, perm)
	}
	return perms
}

// Spec is the persisted form of a player's authorization state, keyed by the
// player uuid. Rank references are ids; a reference to a rank that no longer
// exists is dropped on load, not treated as an error.
type Spec struct {
	Ranks       []string `json:"ranks"`
	Permissions []string `json:"permissions"`
}

func (s *Spec) Validate() error {
	el := errors.NewErrorList()

	for _, id := range s.Permissions {
		if _, err := rank.ParsePermission(id); err != nil {
			el.Add(err)
		}
	}

	return el.Err()
}

func (p *Player) spec() *Spec {
	s := &Spec{}
	for id := range p.ranks {
		if id == rank.DefaultId {
			continue
		}
		s.Ranks = append(s.Ranks, id)
	}
	for perm := range p.permissions {
		s.Permissions = append(s.Permissions, perm.Id())
	}
	return s
}

func playerFromSpec(id uuid.UUID, s *Spec, resolve func(string) (*rank.Rank, bool), def *rank.Rank) (*Player, error) {
	p := newPlayer(id, def)

	for _, rankId := range s.Ranks {
		if r, ok := resolve(rankId); ok {
			p.ranks[r.Id()] = r
		}
	}
	for _, pid := range s.Permissions {
		perm, err := rank.ParsePermission(pid)
		if err != nil {
			return nil, fmt.Errorf("player %s: %w", id, err)
		}
		p.permissions[perm] = struct{}{}
	}

	return p, nil
}
