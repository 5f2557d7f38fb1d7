package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/pixil98/servercore/internal/world"
)

func (h *Handler) registerServerCommands() {
	h.register("save", PermServerSave, "save", h.cmdSave)
	h.registerOpen("who", "who", h.cmdWho)
	h.registerOpen("help", "help", h.cmdHelp)
}

// cmdSave persists every rank and every loaded player.
func (h *Handler) cmdSave(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	if err := h.auth.SaveAll(); err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	cmdCtx.Printf("State saved.")
	return nil
}

func (h *Handler) cmdWho(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	var names []string
	h.world.ForEach(func(a world.Actor) {
		names = append(names, a.Name)
	})
	sort.Strings(names)

	cmdCtx.Printf("%d player(s) online:", len(names))
	for _, name := range names {
		cmdCtx.Printf("  %s", name)
	}
	return nil
}

func (h *Handler) cmdHelp(ctx context.Context, cmdCtx *CommandContext, args []string) error {
	verbs := h.Verbs()
	sort.Strings(verbs)

	cmdCtx.Printf("Available commands:")
	for _, verb := range verbs {
		cmdCtx.Printf("  %s", verb)
	}
	return nil
}
