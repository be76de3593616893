// Package commands implements the Discord slash command, context-menu, and
// modal handlers for madhat.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/madhatbot/madhat/internal/discord"
	"github.com/madhatbot/madhat/internal/engine"
	"github.com/madhatbot/madhat/internal/observe"
)

// nicknameModalPrefix namespaces the rename modal's custom_id; the target
// member ID rides in the suffix.
const nicknameModalPrefix = "nickname_modal:"

// noGuildReply answers room-scoped commands invoked outside a guild.
const noGuildReply = "Error: Command must be called from a server."

// NicknameCommands holds the dependencies for the /nn, /nnbackup and
// /nnrestore commands and the "Change Nickname" context-menu action.
type NicknameCommands struct {
	bot     *discord.Bot
	eng     *engine.Engine
	metrics *observe.Metrics
}

// NewNicknameCommands creates a NicknameCommands and registers its handlers
// with the bot's router.
func NewNicknameCommands(bot *discord.Bot, eng *engine.Engine, metrics *observe.Metrics) *NicknameCommands {
	nc := &NicknameCommands{bot: bot, eng: eng, metrics: metrics}
	nc.Register(bot.Router())
	return nc
}

// Register registers the nickname commands with the router.
func (nc *NicknameCommands) Register(router *discord.CommandRouter) {
	defs := nc.Definitions()
	router.RegisterCommand("nn", defs[0], nc.handleRename)
	router.RegisterCommand("nnbackup", defs[1], nc.handleBackup)
	router.RegisterCommand("nnrestore", defs[2], nc.handleRestore)
	router.RegisterCommand("Change Nickname", defs[3], nc.handleContextRename)
	router.RegisterModalPrefix(nicknameModalPrefix, nc.handleRenameModal)
}

// Definitions returns the ApplicationCommand definitions for Discord, in
// registration order: nn, nnbackup, nnrestore, Change Nickname.
func (nc *NicknameCommands) Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "nn",
			Description: "Changes a user's nickname",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "User to change nickname",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "nickname",
					Description: "New nickname for the user (leave empty to reset)",
				},
			},
		},
		{
			Name:        "nnbackup",
			Description: "Creates a backup of nicknames as they currently are.",
		},
		{
			Name:        "nnrestore",
			Description: "Restores nicknames from last backup, if one exists.",
		},
		{
			Name: "Change Nickname",
			Type: discordgo.UserApplicationCommand,
		},
	}
}

// handleRename handles /nn.
func (nc *NicknameCommands) handleRename(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}

	data := i.ApplicationCommandData()
	var targetID, nickname string
	for _, opt := range data.Options {
		switch opt.Name {
		case "user":
			targetID = opt.UserValue(nil).ID
		case "nickname":
			nickname = opt.StringValue()
		}
	}
	if targetID == "" {
		discord.RespondEphemeral(s, i, "Error: Unknown command")
		return
	}

	discord.DeferReply(s, i)
	nc.renameTarget(s, i, targetID, nickname)
}

// handleContextRename handles the "Change Nickname" user command by opening
// a modal for the new nickname.
func (nc *NicknameCommands) handleContextRename(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}
	targetID := i.ApplicationCommandData().TargetID

	discord.RespondModal(s, i, &discordgo.InteractionResponseData{
		CustomID: nicknameModalPrefix + targetID,
		Title:    "Change Nickname",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					&discordgo.TextInput{
						CustomID:    "nickname",
						Label:       "New nickname",
						Style:       discordgo.TextInputShort,
						Placeholder: "Leave empty to reset",
						MaxLength:   engine.MaxNicknameLength,
					},
				},
			},
		},
	})
}

// handleRenameModal handles the nickname modal submission.
func (nc *NicknameCommands) handleRenameModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}
	data := i.ModalSubmitData()
	targetID := strings.TrimPrefix(data.CustomID, nicknameModalPrefix)

	var nickname string
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range ar.Components {
			if ti, ok := comp.(*discordgo.TextInput); ok && ti.CustomID == "nickname" {
				nickname = strings.TrimSpace(ti.Value)
			}
		}
	}

	discord.DeferReply(s, i)
	nc.renameTarget(s, i, targetID, nickname)
}

// renameTarget runs the shared tail of both rename surfaces: resolve the
// members, apply the engine's checks, and reply.
func (nc *NicknameCommands) renameTarget(s *discordgo.Session, i *discordgo.InteractionCreate, targetID, nickname string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	self, _, err := nc.bot.Roster(s, i.GuildID)
	if err != nil {
		nc.record("nn", err)
		discord.FollowUp(s, i, fmt.Sprintf("Error: %v", err))
		return
	}
	target, err := nc.bot.ResolveTarget(s, i.GuildID, targetID)
	if err != nil {
		nc.record("nn", err)
		discord.FollowUp(s, i, fmt.Sprintf("Error: %v", err))
		return
	}

	// Self-renames require Discord's own Change Nickname permission.
	if i.Member != nil && i.Member.User != nil && i.Member.User.ID == targetID &&
		i.Member.Permissions&discordgo.PermissionChangeNickname == 0 {
		nc.record("nn", engine.ErrTargetOutranks)
		discord.FollowUp(s, i, "You don't have permission to change your nickname")
		return
	}

	actor := interactionUsername(i)
	err = nc.eng.RenameOne(ctx, i.GuildID, actor, self, target, nickname)
	nc.record("nn", err)
	if err != nil {
		discord.FollowUp(s, i, RenameReply(err))
		return
	}
	if nickname == "" {
		discord.FollowUp(s, i, target.DisplayName+"'s nickname has been reset")
		return
	}
	discord.FollowUp(s, i, target.DisplayName+"'s nickname has been changed to "+nickname)
}

// handleBackup handles /nnbackup.
func (nc *NicknameCommands) handleBackup(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}
	discord.DeferReply(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	self, list, err := nc.bot.Roster(s, i.GuildID)
	if err != nil {
		nc.record("nnbackup", err)
		discord.FollowUp(s, i, fmt.Sprintf("Error: %v", err))
		return
	}
	members, err := list(ctx)
	if err != nil {
		nc.record("nnbackup", err)
		discord.FollowUp(s, i, fmt.Sprintf("Error: %v", err))
		return
	}

	_, err = nc.eng.Backup(ctx, i.GuildID, self, members)
	nc.record("nnbackup", err)
	if err != nil {
		discord.FollowUp(s, i, fmt.Sprintf("Error: %v", err))
		return
	}
	discord.FollowUp(s, i, "Backup made successfully.")
}

// handleRestore handles /nnrestore.
func (nc *NicknameCommands) handleRestore(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}
	discord.DeferReply(s, i)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := nc.eng.Restore(ctx, i.GuildID)
	nc.record("nnrestore", err)
	switch {
	case errors.Is(err, engine.ErrNoBackup):
		discord.FollowUp(s, i, "Error: Unable to restore backup.")
	case err != nil:
		discord.FollowUp(s, i, fmt.Sprintf("Error: %v", err))
	default:
		discord.FollowUp(s, i, "Backup restored successfully.")
	}
}

// RenameReply maps an engine rename rejection to its user-visible reply.
func RenameReply(err error) string {
	switch {
	case errors.Is(err, engine.ErrShuffleActive):
		return "Nicknames cannot be changed while they are shuffled, to proceed use /restore"
	case errors.Is(err, engine.ErrNoManagePermission):
		return "Error: I don't have permission to manage nicknames."
	case errors.Is(err, engine.ErrTargetIsSelf):
		return "You cannot change my nickname"
	case errors.Is(err, engine.ErrTargetOutranks):
		return "That user is too powerful for me to change their nickname"
	case errors.Is(err, engine.ErrNicknameTooLong):
		return "That name is over the max length of 32 characters"
	}
	return fmt.Sprintf("Error: %v", err)
}

func (nc *NicknameCommands) record(command string, err error) {
	status := "ok"
	if err != nil {
		status = "rejected"
	}
	nc.metrics.Commands.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", status),
	))
}

// interactionUsername returns the invoking user's name for the audit log.
func interactionUsername(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.Username
	}
	if i.User != nil {
		return i.User.Username
	}
	return "unknown"
}
