package state

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/rank"
	"github.com/pixil98/servercore/internal/world"
)

// Actor identifies the originator of an operation for authorization checks.
// The server console and actors at or above the configured op level bypass
// the rank model entirely.
type Actor struct {
	Id      uuid.UUID
	Console bool
	OpLevel int
}

// Syncer pushes permission changes to an online actor's client. Bulk changes
// are sent as individual set messages.
type Syncer interface {
	SendSetPermission(actor uuid.UUID, perm rank.Permission, allow bool) error
	SendInitPermissions(actor uuid.UUID, perms []rank.Permission) error
}

// RankStore persists ranks keyed by rank id.
type RankStore interface {
	Save(id string, spec *rank.Spec) error
	Delete(id string) error
	GetAll() map[string]*rank.Spec
}

// PlayerStore persists player authorization state keyed by player uuid.
type PlayerStore interface {
	Load(id string) (*Spec, bool, error)
	Save(id string, spec *Spec) error
}

// Manager owns every rank and all per-player authorization state for one
// session. It answers permission queries, applies admin mutations, and fans
// incremental changes out to the clients of affected online players.
type Manager struct {
	mu          sync.RWMutex
	ranks       map[string]*rank.Rank
	defaultRank *rank.Rank
	global      map[rank.Permission]struct{}
	players     map[uuid.UUID]*Player

	rankStore   RankStore
	playerStore PlayerStore
	world       *world.State
	sync        Syncer
	adminLevel  int
}

// NewManager loads all persisted ranks and synthesizes the default rank: the
// persisted "default" rank if one exists, otherwise a fresh baseline built
// from the globally-enabled permission manifest.
func NewManager(ranks RankStore, players PlayerStore, manifest []rank.Permission, w *world.State, sync Syncer, adminLevel int) (*Manager, error) {
	m := &Manager{
		ranks:       map[string]*rank.Rank{},
		global:      map[rank.Permission]struct{}{},
		players:     map[uuid.UUID]*Player{},
		rankStore:   ranks,
		playerStore: players,
		world:       w,
		sync:        sync,
		adminLevel:  adminLevel,
	}

	for _, p := range manifest {
		m.global[p] = struct{}{}
	}

	for id, spec := range ranks.GetAll() {
		r, err := rank.FromSpec(id, spec)
		if err != nil {
			return nil, fmt.Errorf("loading rank %q: %w", id, err)
		}
		m.ranks[r.Id()] = r
	}

	if def, ok := m.ranks[rank.DefaultId]; ok {
		m.defaultRank = def
	} else {
		m.defaultRank = rank.NewDefault("Default", "&8[&7Default&8] ", manifest)
		m.ranks[rank.DefaultId] = m.defaultRank
	}

	return m, nil
}

// DefaultRank returns the baseline rank held by every player.
func (m *Manager) DefaultRank() *rank.Rank {
	return m.defaultRank
}

// Rank looks up a rank by id.
func (m *Manager) Rank(id string) (*rank.Rank, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.ranks[id]
	return r, ok
}

// Ranks returns all registered ranks ordered by descending priority.
func (m *Manager) Ranks() []*rank.Rank {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ranks := make([]*rank.Rank, 0, len(m.ranks))
	for _, r := range m.ranks {
		ranks = append(ranks, r)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Priority() != ranks[j].Priority() {
			return ranks[i].Priority() > ranks[j].Priority()
		}
		return ranks[i].Id() < ranks[j].Id()
	})
	return ranks
}

// GlobalPermissions returns the manifest of globally-enabled permissions in
// stable order. This is an allow-list for listing and completion, not an
// enforcement surface.
func (m *Manager) GlobalPermissions() []rank.Permission {
	perms := make([]rank.Permission, 0, len(m.global))
	for p := range m.global {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Id() < perms[j].Id() })
	return perms
}

// AddRank registers a new rank. Registering another default rank, or reusing
// an existing id, fails without touching state.
func (m *Manager) AddRank(r *rank.Rank) error {
	if r.IsDefault() || r.Id() == rank.DefaultId {
		return fmt.Errorf("%w: %q", rank.ErrReservedRank, r.Id())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.ranks[r.Id()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateRank, r.Id())
	}
	if err := m.rankStore.Save(r.Id(), r.Spec()); err != nil {
		return fmt.Errorf("saving rank %q: %w", r.Id(), err)
	}
	m.ranks[r.Id()] = r
	return nil
}

// SaveRank persists one rank, after a property edit.
func (m *Manager) SaveRank(id string) error {
	m.mu.RLock()
	r, ok := m.ranks[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRank, id)
	}
	return m.rankStore.Save(id, r.Spec())
}

// RemoveRank deletes a rank and cascades the removal to every cached player
// holding it. Players loaded later simply won't resolve the dangling rank id
// from their persisted file.
func (m *Manager) RemoveRank(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.ranks[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRank, id)
	}
	if r.IsDefault() {
		return fmt.Errorf("%w: %q", rank.ErrReservedRank, id)
	}

	// Store first: a failed delete leaves the rank fully intact.
	if err := m.rankStore.Delete(id); err != nil {
		return fmt.Errorf("deleting rank %q: %w", id, err)
	}

	delete(m.ranks, id)
	for _, p := range m.players {
		if !p.HasRank(id) {
			continue
		}
		delete(p.ranks, id)
		m.syncLostPermissions(p, r.Permissions())
	}
	return nil
}

// Player returns the cached authorization state for uuid, loading it from
// the player store on first reference. A missing file means a fresh player.
func (m *Manager) Player(id uuid.UUID) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playerLocked(id)
}

func (m *Manager) playerLocked(id uuid.UUID) (*Player, error) {
	if p, ok := m.players[id]; ok {
		return p, nil
	}

	spec, found, err := m.playerStore.Load(id.String())
	if err != nil {
		return nil, fmt.Errorf("loading player %s: %w", id, err)
	}

	var p *Player
	if !found {
		p = newPlayer(id, m.defaultRank)
	} else {
		p, err = playerFromSpec(id, spec, func(rankId string) (*rank.Rank, bool) {
			r, ok := m.ranks[rankId]
			return r, ok
		}, m.defaultRank)
		if err != nil {
			return nil, err
		}
	}

	m.players[id] = p
	return p, nil
}

// Allows is the single authorization query. The server console and op-level
// actors short-circuit to true.
func (m *Manager) Allows(actor Actor, perm rank.Permission) bool {
	if actor.Console || actor.OpLevel >= m.adminLevel {
		return true
	}

	p, err := m.Player(actor.Id)
	if err != nil {
		slog.Warn("permission check failed to load player", "player", actor.Id, "error", err)
		return false
	}
	return p.HasPermission(perm)
}

// HandleJoin initializes the client's permission view when an actor attaches
// to the session.
func (m *Manager) HandleJoin(id uuid.UUID) error {
	p, err := m.Player(id)
	if err != nil {
		return err
	}
	return m.sync.SendInitPermissions(id, p.EffectivePermissions())
}

// AssignRank grants a rank to a player and syncs the newly-gained
// permissions. Assigning a rank the player already holds is a no-op.
func (m *Manager) AssignRank(id uuid.UUID, rankId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.ranks[rankId]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRank, rankId)
	}
	if r.IsDefault() {
		return fmt.Errorf("%w: %q", rank.ErrReservedRank, rankId)
	}

	p, err := m.playerLocked(id)
	if err != nil {
		return err
	}
	if p.HasRank(rankId) {
		return nil
	}

	m.syncGainedPermissions(p, r.Permissions())
	p.ranks[rankId] = r
	return nil
}

// UnassignRank removes a rank from a player. The default rank can never be
// removed per-player.
func (m *Manager) UnassignRank(id uuid.UUID, rankId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.ranks[rankId]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRank, rankId)
	}
	if r.IsDefault() {
		return fmt.Errorf("%w: %q", rank.ErrReservedRank, rankId)
	}

	p, err := m.playerLocked(id)
	if err != nil {
		return err
	}
	if !p.HasRank(rankId) {
		return nil
	}

	delete(p.ranks, rankId)
	m.syncLostPermissions(p, r.Permissions())
	return nil
}

// GrantPlayerPermission adds a direct permission override to a player.
func (m *Manager) GrantPlayerPermission(id uuid.UUID, perm rank.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.playerLocked(id)
	if err != nil {
		return err
	}

	hadBefore := p.HasPermission(perm)
	p.permissions[perm] = struct{}{}
	if !hadBefore {
		m.sendSet(id, perm, true)
	}
	return nil
}

// RevokePlayerPermission removes a direct permission override. The removal
// is only synced if the player no longer holds the permission through some
// other grant.
func (m *Manager) RevokePlayerPermission(id uuid.UUID, perm rank.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.playerLocked(id)
	if err != nil {
		return err
	}

	hadBefore := p.HasPermission(perm)
	delete(p.permissions, perm)
	if hadBefore && !p.HasPermission(perm) {
		m.sendSet(id, perm, false)
	}
	return nil
}

// GrantRankPermission adds a permission to a rank and fans the addition out
// to every online player holding the rank. The default rank fans out to all
// online players.
func (m *Manager) GrantRankPermission(rankId string, perm rank.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.ranks[rankId]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRank, rankId)
	}

	r.AddPermission(perm)
	for _, p := range m.players {
		if p.HasRank(rankId) && m.world.Online(p.uuid) {
			m.sendSet(p.uuid, perm, true)
		}
	}
	return nil
}

// RevokeRankPermission removes a permission from a rank. Players who still
// hold the permission through another rank or a direct grant are not synced.
func (m *Manager) RevokeRankPermission(rankId string, perm rank.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.ranks[rankId]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRank, rankId)
	}

	r.RemovePermission(perm)
	for _, p := range m.players {
		if p.HasRank(rankId) && m.world.Online(p.uuid) && !p.HasPermission(perm) {
			m.sendSet(p.uuid, perm, false)
		}
	}
	return nil
}

// syncGainedPermissions sends set messages for perms the player doesn't
// already hold. Call before mutating the player so "already held" is
// evaluated against the prior state.
func (m *Manager) syncGainedPermissions(p *Player, perms []rank.Permission) {
	if !m.world.Online(p.uuid) {
		return
	}
	for _, perm := range perms {
		if !p.HasPermission(perm) {
			m.sendSet(p.uuid, perm, true)
		}
	}
}

// syncLostPermissions sends removals for perms no longer held after a rank
// is taken away. Call after mutating the player.
func (m *Manager) syncLostPermissions(p *Player, perms []rank.Permission) {
	if !m.world.Online(p.uuid) {
		return
	}
	for _, perm := range perms {
		if !p.HasPermission(perm) {
			m.sendSet(p.uuid, perm, false)
		}
	}
}

func (m *Manager) sendSet(id uuid.UUID, perm rank.Permission, allow bool) {
	if err := m.sync.SendSetPermission(id, perm, allow); err != nil {
		slog.Warn("failed to sync permission change", "player", id, "permission", perm, "error", err)
	}
}

// SavePlayer persists one player's authorization state.
func (m *Manager) SavePlayer(id uuid.UUID) error {
	m.mu.RLock()
	p, ok := m.players[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return m.playerStore.Save(id.String(), p.spec())
}

// SaveAll persists every rank and every cached player. A failed save leaves
// the in-memory state untouched.
func (m *Manager) SaveAll() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, r := range m.ranks {
		if err := m.rankStore.Save(id, r.Spec()); err != nil {
			return fmt.Errorf("saving rank %q: %w", id, err)
		}
	}
	for id, p := range m.players {
		if err := m.playerStore.Save(id.String(), p.spec()); err != nil {
			return fmt.Errorf("saving player %s: %w", id, err)
		}
	}
	return nil
}
