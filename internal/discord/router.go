package discord

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// HandlerFunc is the signature for interaction handlers.
type HandlerFunc func(s *discordgo.Session, i *discordgo.InteractionCreate)

// commandEntry stores a command definition along with its handler.
type commandEntry struct {
	command *discordgo.ApplicationCommand
	handler HandlerFunc
}

// CommandRouter dispatches Discord interactions to registered handlers.
// Slash commands and user context-menu commands share one namespace keyed
// by command name; modal submits are keyed by custom_id prefix so handlers
// can encode a target in the suffix.
type CommandRouter struct {
	mu          sync.RWMutex
	commands    map[string]commandEntry // command name → entry
	modalPrefix map[string]HandlerFunc  // custom_id prefix → handler
}

// NewCommandRouter creates an empty router.
func NewCommandRouter() *CommandRouter {
	return &CommandRouter{
		commands:    make(map[string]commandEntry),
		modalPrefix: make(map[string]HandlerFunc),
	}
}

// RegisterCommand registers a handler for a slash or user command. The cmd
// definition is used when registering commands with Discord.
func (r *CommandRouter) RegisterCommand(name string, cmd *discordgo.ApplicationCommand, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = commandEntry{command: cmd, handler: handler}
}

// RegisterModalPrefix registers a handler that matches any modal submit
// whose custom_id starts with the given prefix (e.g., "nickmodal:" matches
// "nickmodal:123456").
func (r *CommandRouter) RegisterModalPrefix(prefix string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modalPrefix[prefix] = handler
}

// ApplicationCommands returns the list of command definitions for
// registration with the Discord API.
func (r *CommandRouter) ApplicationCommands() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var cmds []*discordgo.ApplicationCommand
	for _, entry := range r.commands {
		if entry.command != nil {
			cmds = append(cmds, entry.command)
		}
	}
	return cmds
}

// Handle dispatches an interaction to the appropriate handler.
func (r *CommandRouter) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleApplicationCommand(s, i)

	case discordgo.InteractionModalSubmit:
		r.handleModal(s, i)

	default:
		slog.Warn("discord: unhandled interaction type", "type", i.Type)
	}
}

func (r *CommandRouter) handleApplicationCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name

	r.mu.RLock()
	entry, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		slog.Warn("discord: unknown command", "name", name)
		RespondEphemeral(s, i, "Error: Unknown command")
		return
	}
	entry.handler(s, i)
}

func (r *CommandRouter) handleModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.ModalSubmitData().CustomID

	r.mu.RLock()
	var handler HandlerFunc
	for prefix, h := range r.modalPrefix {
		if strings.HasPrefix(customID, prefix) {
			handler = h
			break
		}
	}
	r.mu.RUnlock()

	if handler == nil {
		slog.Warn("discord: unknown modal", "custom_id", customID)
		RespondEphemeral(s, i, "Error: Unknown command")
		return
	}
	handler(s, i)
}
