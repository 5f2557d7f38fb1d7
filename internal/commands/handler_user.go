package commands

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/rank"
	"github.com/pixil98/servercore/internal/state"
)

func (h *Handler) registerUserCommands() {
	h.registerOpen("user", "user <player> <rank|perm> <add|remove> <value>", h.cmdUser)
	h.register("perms", PermPermissionsAccess, "perms [list|player]", h.cmdPerms)
}

// cmdUser edits one player's ranks and direct permission grants. The
// player may be referenced by name (online only) or by id.
func (h *Handler) cmdUser(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if len(args) != 4 {
		return usageError()
	}

	target, err := h.resolveActorId(args[0])
	if err != nil {
		return err
	}

	switch args[1] {
	case "rank":
		return h.userRank(cmdCtx, target, args[2], args[3])
	case "perm":
		return h.userPerm(cmdCtx, target, args[2], args[3])
	default:
		return usageError()
	}
}

func (h *Handler) userRank(cmdCtx *CommandContext, target uuid.UUID, op, rankId string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermPermissionsEdit); err != nil {
		return err
	}

	var err error
	switch op {
	case "add":
		err = h.auth.AssignRank(target, rankId)
	case "remove":
		err = h.auth.UnassignRank(target, rankId)
	default:
		return usageError()
	}
	if err != nil {
		if errors.Is(err, state.ErrUnknownRank) {
			return NewUserErrorf("No rank %q.", rankId)
		}
		if errors.Is(err, rank.ErrReservedRank) {
			return NewUserError("The default rank is held by everyone and can't be assigned or removed.")
		}
		return err
	}

	cmdCtx.Printf("Updated ranks for %s.", target)
	return nil
}

func (h *Handler) userPerm(cmdCtx *CommandContext, target uuid.UUID, op, node string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermPermissionsEdit); err != nil {
		return err
	}

	perm, err := rank.ParsePermission(node)
	if err != nil {
		return NewUserErrorf("Invalid permission %q: %v", node, err)
	}

	switch op {
	case "add":
		err = h.auth.GrantPlayerPermission(target, perm)
	case "remove":
		err = h.auth.RevokePlayerPermission(target, perm)
	default:
		return usageError()
	}
	if err != nil {
		return err
	}

	cmdCtx.Printf("Updated permissions for %s.", target)
	return nil
}

// cmdPerms lists effective permissions: the caller's own, another player's
// when given a name or id, or the globally-enabled manifest with "list".
func (h *Handler) cmdPerms(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	target := cmdCtx.Actor.Id
	if len(args) == 1 {
		if args[0] == "list" {
			perms := h.auth.GlobalPermissions()
			cmdCtx.Printf("Enabled permissions (%d):", len(perms))
			for _, perm := range perms {
				cmdCtx.Printf("  %s", perm)
			}
			return nil
		}
		var err error
		target, err = h.resolveActorId(args[0])
		if err != nil {
			return err
		}
	} else if len(args) > 1 {
		return usageError()
	}

	p, err := h.auth.Player(target)
	if err != nil {
		return err
	}

	ranks := p.Ranks()
	cmdCtx.Printf("Ranks for %s:", target)
	for _, r := range ranks {
		cmdCtx.Printf("  %s", r.Id())
	}
	perms := p.EffectivePermissions()
	cmdCtx.Printf("Effective permissions (%d):", len(perms))
	for _, perm := range perms {
		cmdCtx.Printf("  %s", perm)
	}
	return nil
}

// resolveActorId accepts a raw uuid (works for offline players) or an
// online player's name.
func (h *Handler) resolveActorId(ref string) (uuid.UUID, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	a, err := h.resolveActor(ref)
	if err != nil {
		return uuid.Nil, err
	}
	return a.Id, nil
}
