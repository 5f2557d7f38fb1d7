package commands

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/pixil98/servercore/internal/rank"
	"github.com/pixil98/servercore/internal/state"
)

func (h *Handler) registerRankCommands() {
	h.registerOpen("rank", "rank <list|create|remove|name|prefix|priority|perm> ...", h.cmdRank)
}

// cmdRank routes the rank admin subcommands. Each subcommand carries its
// own permission node so list access can be granted without edit access.
func (h *Handler) cmdRank(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if len(args) == 0 {
		return usageError()
	}

	switch args[0] {
	case "list":
		return h.rankList(cmdCtx, args[1:])
	case "create":
		return h.rankCreate(cmdCtx, args[1:])
	case "remove":
		return h.rankRemove(cmdCtx, args[1:])
	case "name":
		return h.rankSetName(cmdCtx, args[1:])
	case "prefix":
		return h.rankSetPrefix(cmdCtx, args[1:])
	case "priority":
		return h.rankSetPriority(cmdCtx, args[1:])
	case "perm":
		return h.rankPerm(cmdCtx, args[1:])
	default:
		return usageError()
	}
}

func (h *Handler) rankList(cmdCtx *CommandContext, args []string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermRanksList); err != nil {
		return err
	}

	ranks := h.auth.Ranks()
	cmdCtx.Printf("%d rank(s):", len(ranks))
	for _, r := range ranks {
		cmdCtx.Printf("  %-16s %-20s priority=%-4d perms=%d", r.Id(), r.Name(), r.Priority(), len(r.Permissions()))
	}
	return nil
}

func (h *Handler) rankCreate(cmdCtx *CommandContext, args []string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermRanksCreate); err != nil {
		return err
	}
	if len(args) < 1 {
		return usageError()
	}

	id := args[0]
	name := id
	if len(args) > 1 {
		name = strings.Join(args[1:], " ")
	}

	r, err := rank.New(id, name, "", 0)
	if err != nil {
		return NewUserErrorf("Can't create rank %q: %v", id, err)
	}
	if err := h.auth.AddRank(r); err != nil {
		if errors.Is(err, state.ErrDuplicateRank) {
			return NewUserErrorf("Rank %q already exists.", id)
		}
		return err
	}

	cmdCtx.Printf("Created rank %q.", id)
	return nil
}

func (h *Handler) rankRemove(cmdCtx *CommandContext, args []string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermRanksRemove); err != nil {
		return err
	}
	if len(args) != 1 {
		return usageError()
	}

	if err := h.auth.RemoveRank(args[0]); err != nil {
		if errors.Is(err, state.ErrUnknownRank) {
			return NewUserErrorf("No rank %q.", args[0])
		}
		if errors.Is(err, rank.ErrReservedRank) {
			return NewUserError("The default rank can't be removed.")
		}
		return err
	}

	cmdCtx.Printf("Removed rank %q.", args[0])
	return nil
}

func (h *Handler) rankSetName(cmdCtx *CommandContext, args []string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermRanksProperties); err != nil {
		return err
	}
	if len(args) < 2 {
		return usageError()
	}

	r, ok := h.auth.Rank(args[0])
	if !ok {
		return NewUserErrorf("No rank %q.", args[0])
	}
	r.SetName(strings.Join(args[1:], " "))
	if err := h.auth.SaveRank(r.Id()); err != nil {
		return err
	}

	cmdCtx.Printf("Rank %q is now named %q.", r.Id(), r.Name())
	return nil
}

func (h *Handler) rankSetPrefix(cmdCtx *CommandContext, args []string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermRanksProperties); err != nil {
		return err
	}
	if len(args) < 2 {
		return usageError()
	}

	r, ok := h.auth.Rank(args[0])
	if !ok {
		return NewUserErrorf("No rank %q.", args[0])
	}
	r.SetPrefix(strings.Join(args[1:], " "))
	if err := h.auth.SaveRank(r.Id()); err != nil {
		return err
	}

	cmdCtx.Printf("Rank %q prefix set.", r.Id())
	return nil
}

func (h *Handler) rankSetPriority(cmdCtx *CommandContext, args []string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermRanksProperties); err != nil {
		return err
	}
	if len(args) != 2 {
		return usageError()
	}

	priority, err := strconv.Atoi(args[1])
	if err != nil {
		return NewUserErrorf("%q is not a number.", args[1])
	}

	r, ok := h.auth.Rank(args[0])
	if !ok {
		return NewUserErrorf("No rank %q.", args[0])
	}
	if err := r.SetPriority(priority); err != nil {
		return NewUserError("The default rank's priority can't be changed.")
	}
	if err := h.auth.SaveRank(r.Id()); err != nil {
		return err
	}

	cmdCtx.Printf("Rank %q priority is now %d.", r.Id(), priority)
	return nil
}

func (h *Handler) rankPerm(cmdCtx *CommandContext, args []string) error {
	if err := h.requirePerm(cmdCtx.Actor, PermRanksEditPerms); err != nil {
		return err
	}
	if len(args) != 3 {
		return usageError()
	}

	perm, err := rank.ParsePermission(args[2])
	if err != nil {
		return NewUserErrorf("Invalid permission %q: %v", args[2], err)
	}

	switch args[0] {
	case "add":
		err = h.auth.GrantRankPermission(args[1], perm)
	case "remove":
		err = h.auth.RevokeRankPermission(args[1], perm)
	default:
		return usageError()
	}
	if err != nil {
		if errors.Is(err, state.ErrUnknownRank) {
			return NewUserErrorf("No rank %q.", args[1])
		}
		return err
	}
	if err := h.auth.SaveRank(args[1]); err != nil {
		return err
	}

	cmdCtx.Printf("Rank %q updated.", args[1])
	return nil
}
