package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pixil98/go-errors"
)

// DefaultId is the reserved id of the rank every player implicitly holds.
const DefaultId = "default"

// Kind distinguishes the baseline default rank from admin-created ranks.
type Kind int

const (
	KindUser Kind = iota
	KindDefault
)

// Rank is a named, prioritized bundle of permissions. Ranks are plain
// entities; fan-out of permission changes to online players is handled by
// the state manager that owns them.
type Rank struct {
	id          string
	kind        Kind
	name        string
	prefix      string
	priority    int
	permissions map[Permission]struct{}
}

// New creates a user rank. The id "default" is reserved for the rank
// synthesized at startup.
func New(id, name, prefix string, priority int) (*Rank, error) {
	if err := validateId(id); err != nil {
		return nil, err
	}
	if id == DefaultId {
		return nil, fmt.Errorf("%w: %q", ErrReservedRank, id)
	}
	return &Rank{
		id:          id,
		kind:        KindUser,
		name:        name,
		prefix:      prefix,
		priority:    priority,
		permissions: map[Permission]struct{}{},
	}, nil
}

// NewDefault creates the default rank. It always sits at the baseline
// priority and its priority cannot be changed afterwards.
func NewDefault(name, prefix string, permissions []Permission) *Rank {
	r := &Rank{
		id:          DefaultId,
		kind:        KindDefault,
		name:        name,
		prefix:      prefix,
		priority:    0,
		permissions: map[Permission]struct{}{},
	}
	for _, p := range permissions {
		r.permissions[p] = struct{}{}
	}
	return r
}

func validateId(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRankId)
	}
	if strings.ContainsAny(id, " \t") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidRankId, id)
	}
	if id != strings.ToLower(id) {
		return fmt.Errorf("%w: %q must be lowercase", ErrInvalidRankId, id)
	}
	return nil
}

func (r *Rank) Id() string {
	return r.id
}

func (r *Rank) Kind() Kind {
	return r.kind
}

// IsDefault reports whether this is the baseline rank held by everyone.
func (r *Rank) IsDefault() bool {
	return r.kind == KindDefault
}

func (r *Rank) Name() string {
	return r.name
}

func (r *Rank) SetName(name string) {
	r.name = name
}

func (r *Rank) Prefix() string {
	return r.prefix
}

func (r *Rank) SetPrefix(prefix string) {
	r.prefix = prefix
}

func (r *Rank) Priority() int {
	return r.priority
}

// SetPriority fails on the default rank, which is always baseline.
func (r *Rank) SetPriority(priority int) error {
	if r.kind == KindDefault {
		return ErrImmutableRank
	}
	r.priority = priority
	return nil
}

func (r *Rank) AddPermission(p Permission) {
	r.permissions[p] = struct{}{}
}

func (r *Rank) RemovePermission(p Permission) {
	delete(r.permissions, p)
}

// HasPermission reports whether the rank grants p, directly or through a
// broader namespace grant.
func (r *Rank) HasPermission(p Permission) bool {
	for owned := range r.permissions {
		if owned.Grants(p) {
			return true
		}
	}
	return false
}

// Permissions returns the rank's permission set in stable order.
func (r *Rank) Permissions() []Permission {
	perms := make([]Permission, 0, len(r.permissions))
	for p := range r.permissions {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].Id() < perms[j].Id() })
	return perms
}

// Spec is the persisted form of a rank. The rank id is the asset id.
type Spec struct {
	Name        string   `json:"name"`
	Prefix      string   `json:"prefix"`
	Priority    int      `json:"priority"`
	Permissions []string `json:"permissions"`
}

func (s *Spec) Validate() error {
	el := errors.NewErrorList()

	if s.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}

	for _, id := range s.Permissions {
		if _, err := ParsePermission(id); err != nil {
			el.Add(err)
		}
	}

	return el.Err()
}

// FromSpec rebuilds a rank from its persisted form. A spec with the
// reserved id becomes the default rank.
func FromSpec(id string, s *Spec) (*Rank, error) {
	if err := validateId(id); err != nil {
		return nil, err
	}

	perms := make([]Permission, 0, len(s.Permissions))
	for _, pid := range s.Permissions {
		p, err := ParsePermission(pid)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}

	if id == DefaultId {
		return NewDefault(s.Name, s.Prefix, perms), nil
	}

	r, err := New(id, s.Name, s.Prefix, s.Priority)
	if err != nil {
		return nil, err
	}
	for _, p := range perms {
		r.permissions[p] = struct{}{}
	}
	return r, nil
}

// Spec converts the rank to its persisted form.
func (r *Rank) Spec() *Spec {
	ids := make([]string, 0, len(r.permissions))
	for _, p := range r.Permissions() {
		ids = append(ids, p.Id())
	}
	return &Spec{
		Name:        r.name,
		Prefix:      r.prefix,
		Priority:    r.priority,
		Permissions: ids,
	}
}
