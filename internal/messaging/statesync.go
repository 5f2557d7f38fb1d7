package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/rank"
)

// setPermissionMsg is one incremental permission change for a client.
type setPermissionMsg struct {
	Permission string `json:"permission"`
	Allow      bool   `json:"allow"`
}

// initPermissionsMsg carries a joining player's full effective set.
type initPermissionsMsg struct {
	Permissions []string `json:"permissions"`
}

// PermissionSyncer pushes permission state to clients over the bus. It
// implements the state manager's sync interface: one message per change,
// and a bulk init when a player joins.
type PermissionSyncer struct {
	pub Publisher
}

func NewPermissionSyncer(pub Publisher) *PermissionSyncer {
	return &PermissionSyncer{pub: pub}
}

func (s *PermissionSyncer) SendSetPermission(actor uuid.UUID, perm rank.Permission, allow bool) error {
	data, err := json.Marshal(setPermissionMsg{
		Permission: perm.Id(),
		Allow:      allow,
	})
	if err != nil {
		return fmt.Errorf("marshaling set message: %w", err)
	}
	return s.pub.Publish(fmt.Sprintf("state.%s.permissions.set", actor), data)
}

func (s *PermissionSyncer) SendInitPermissions(actor uuid.UUID, perms []rank.Permission) error {
	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.Id())
	}

	data, err := json.Marshal(initPermissionsMsg{Permissions: ids})
	if err != nil {
		return fmt.Errorf("marshaling init message: %w", err)
	}
	return s.pub.Publish(fmt.Sprintf("state.%s.permissions.init", actor), data)
}
