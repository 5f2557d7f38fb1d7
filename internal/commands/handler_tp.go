package commands

import (
	"context"
	"errors"
	"strconv"

	"github.com/pixil98/servercore/internal/teleport"
	"github.com/pixil98/servercore/internal/world"
)

func (h *Handler) registerTeleportCommands() {
	h.register("tpa", PermTpAsk, "tpa [player]", h.cmdTpa)
	h.register("tpahere", PermTpAsk, "tpahere <player>", h.cmdTpaHere)
	h.register("tpaccept", PermTpAccept, "tpaccept <request-id>", h.cmdTpAccept)
	h.register("tpdeny", PermTpDeny, "tpdeny <request-id>", h.cmdTpDeny)
	h.register("tpcancel", PermTpDeny, "tpcancel <request-id>", h.cmdTpCancel)
	h.register("tp", PermTpDirect, "tp <x> <y> <z>", h.cmdTp)
}

// cmdTpa asks to teleport to another player. With no argument it lists the
// caller's pending requests instead.
func (h *Handler) cmdTpa(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if len(args) == 0 {
		return h.listRequests(cmdCtx)
	}
	if len(args) != 1 {
		return usageError()
	}

	target, err := h.resolveActor(args[0])
	if err != nil {
		return err
	}

	_, err = h.tp.RequestTeleportTo(cmdCtx.Actor.Id, teleport.ActorRecipient(target.Id))
	return h.requestError(err, target)
}

// cmdTpaHere asks another player to teleport to the caller.
func (h *Handler) cmdTpaHere(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if len(args) != 1 {
		return usageError()
	}

	target, err := h.resolveActor(args[0])
	if err != nil {
		return err
	}

	_, err = h.tp.RequestTeleportFrom(cmdCtx.Actor.Id, teleport.ActorRecipient(target.Id))
	return h.requestError(err, target)
}

func (h *Handler) requestError(err error, target world.Actor) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, teleport.ErrSelfRequest):
		return NewUserError("You can't send a teleport request to yourself.")
	case errors.Is(err, teleport.ErrStaticRecipient):
		return NewUserErrorf("%s can't be teleported.", target.Name)
	case errors.Is(err, teleport.ErrSenderOffline), errors.Is(err, teleport.ErrRecipientGone):
		return NewUserErrorf("%s is not online.", target.Name)
	default:
		return err
	}
}

func (h *Handler) cmdTpAccept(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if len(args) != 1 {
		return usageError()
	}

	id, err := parseRequestId(args[0])
	if err != nil {
		return err
	}

	if err := h.tp.Accept(cmdCtx.Actor.Id, id); err != nil {
		if errors.Is(err, teleport.ErrUnknownRequest) {
			return NewUserError("No such request. It may have timed out.")
		}
		return err
	}
	return nil
}

func (h *Handler) cmdTpDeny(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if len(args) != 1 {
		return usageError()
	}

	id, err := parseRequestId(args[0])
	if err != nil {
		return err
	}

	if err := h.tp.Deny(cmdCtx.Actor.Id, id); err != nil {
		if errors.Is(err, teleport.ErrUnknownRequest) {
			return NewUserError("No such request. It may have timed out.")
		}
		return err
	}
	return nil
}

func (h *Handler) cmdTpCancel(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if len(args) != 1 {
		return usageError()
	}

	id, err := parseRequestId(args[0])
	if err != nil {
		return err
	}

	if err := h.tp.Cancel(cmdCtx.Actor.Id, id); err != nil {
		if errors.Is(err, teleport.ErrUnknownRequest) {
			return NewUserError("No such request. It may have timed out.")
		}
		return err
	}
	return nil
}

// cmdTp starts a countdown teleport to fixed coordinates.
func (h *Handler) cmdTp(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if len(args) != 3 {
		return usageError()
	}

	coords := make([]float64, 3)
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return NewUserErrorf("%q is not a coordinate.", arg)
		}
		coords[i] = v
	}

	pos := world.Position{X: coords[0], Y: coords[1], Z: coords[2]}
	h.tp.TeleportTo(cmdCtx.Actor.Id, teleport.PositionDestination(pos))
	cmdCtx.Printf("Teleporting to (%.1f, %.1f, %.1f)...", pos.X, pos.Y, pos.Z)
	return nil
}

func (h *Handler) listRequests(cmdCtx *CommandContext) error {
	sent := h.tp.Sent(cmdCtx.Actor.Id)
	received := h.tp.Received(cmdCtx.Actor.Id)

	if len(sent) == 0 && len(received) == 0 {
		cmdCtx.Printf("No pending teleport requests.")
		return nil
	}

	for _, r := range sent {
		cmdCtx.Printf("sent %s: %s request to %s", r.Id(), r.Direction(), h.actorName(r.Recipient()))
	}
	for _, r := range received {
		cmdCtx.Printf("received %s: %s request from %s", r.Id(), r.Direction(), h.senderName(r))
	}
	return nil
}

func (h *Handler) actorName(rec teleport.Recipient) string {
	if id, ok := rec.Actor(); ok {
		if a, found := h.world.Get(id); found {
			return a.Name
		}
	}
	return rec.String()
}

func (h *Handler) senderName(r *teleport.Request) string {
	if a, ok := h.world.Get(r.Sender()); ok {
		return a.Name
	}
	return r.Sender().String()
}
