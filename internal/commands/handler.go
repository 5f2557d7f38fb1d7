package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pixil98/servercore/internal/rank"
	"github.com/pixil98/servercore/internal/state"
	"github.com/pixil98/servercore/internal/teleport"
	"github.com/pixil98/servercore/internal/world"
)

// Permission nodes gating the built-in verbs.
const (
	PermTpAsk    = "servercore.commands.tp.ask"
	PermTpAccept = "servercore.commands.tp.accept"
	PermTpDeny   = "servercore.commands.tp.deny"
	PermTpDirect = "servercore.commands.tp.direct"

	PermRanksList       = "servercore.ranks.list"
	PermRanksCreate     = "servercore.ranks.create"
	PermRanksRemove     = "servercore.ranks.remove"
	PermRanksProperties = "servercore.ranks.edit.properties"
	PermRanksEditPerms  = "servercore.ranks.edit.permissions"

	PermPermissionsAccess = "servercore.permissions.access"
	PermPermissionsEdit   = "servercore.permissions.edit"

	PermServerSave = "servercore.server.save"
)

// CommandContext carries the invoking actor and the stream their replies
// are written to.
type CommandContext struct {
	Actor state.Actor
	Out   io.Writer
}

func (c *CommandContext) Printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format+"\n", args...)
}

// HandlerFunc is the signature for command implementations.
type HandlerFunc func(ctx context.Context, cmdCtx *CommandContext, args []string) error

// command pairs a verb with its permission gate.
type command struct {
	perm  rank.Permission
	gated bool
	usage string
	fn    HandlerFunc
}

// Handler dispatches chat/console verbs after checking that the actor
// holds the verb's permission node.
type Handler struct {
	auth  *state.Manager
	tp    *teleport.Manager
	world *world.State

	commands map[string]*command
}

func NewHandler(auth *state.Manager, tp *teleport.Manager, w *world.State) *Handler {
	h := &Handler{
		auth:     auth,
		tp:       tp,
		world:    w,
		commands: make(map[string]*command),
	}

	h.registerRankCommands()
	h.registerUserCommands()
	h.registerTeleportCommands()
	h.registerServerCommands()

	return h
}

// register adds a permission-gated verb. Node must be a valid permission id.
func (h *Handler) register(name, node, usage string, fn HandlerFunc) {
	h.commands[name] = &command{
		perm:  rank.MustPermission(node),
		gated: true,
		usage: usage,
		fn:    fn,
	}
}

// registerOpen adds a verb anyone may run.
func (h *Handler) registerOpen(name, usage string, fn HandlerFunc) {
	h.commands[name] = &command{
		usage: usage,
		fn:    fn,
	}
}

// Exec runs a verb on behalf of an actor. Errors of type *UserError are
// input problems to be shown to the actor; anything else is a system
// failure.
func (h *Handler) Exec(ctx context.Context, actor state.Actor, out io.Writer, name string, args ...string) error {
	cmd, ok := h.commands[strings.ToLower(name)]
	if !ok {
		return NewUserErrorf("Unknown command: %s", name)
	}

	if cmd.gated && !h.auth.Allows(actor, cmd.perm) {
		return NewUserError("You don't have permission to do that.")
	}

	cmdCtx := &CommandContext{Actor: actor, Out: out}
	err := cmd.fn(ctx, cmdCtx, args)
	if ue, ok := err.(*UserError); ok && ue.Message == errUsage {
		return NewUserErrorf("Usage: %s", cmd.usage)
	}
	return err
}

// ExecLine splits a raw input line into verb and arguments and runs it.
func (h *Handler) ExecLine(ctx context.Context, actor state.Actor, out io.Writer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return h.Exec(ctx, actor, out, fields[0], fields[1:]...)
}

// Verbs returns the registered verb names, for help output.
func (h *Handler) Verbs() []string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	return names
}

// requirePerm gates a subcommand on its own permission node.
func (h *Handler) requirePerm(actor state.Actor, node string) error {
	if !h.auth.Allows(actor, rank.MustPermission(node)) {
		return NewUserError("You don't have permission to do that.")
	}
	return nil
}

// errUsage is the sentinel message handlers return when arguments don't
// line up; Exec swaps it for the verb's usage string.
const errUsage = "usage"

func usageError() *UserError {
	return NewUserError(errUsage)
}

// resolveActor finds an online actor by name (case-insensitive) or id.
func (h *Handler) resolveActor(ref string) (world.Actor, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if a, ok := h.world.Get(id); ok {
			return a, nil
		}
		return world.Actor{}, NewUserErrorf("Nobody with id %s is online.", ref)
	}

	var found *world.Actor
	h.world.ForEach(func(a world.Actor) {
		if strings.EqualFold(a.Name, ref) {
			hit := a
			found = &hit
		}
	})
	if found == nil {
		return world.Actor{}, NewUserErrorf("Nobody named %q is online.", ref)
	}
	return *found, nil
}

// parseRequestId parses a teleport request id argument.
func parseRequestId(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, NewUserErrorf("%q is not a request id.", arg)
	}
	return id, nil
}
