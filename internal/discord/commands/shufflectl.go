package commands

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/madhatbot/madhat/internal/discord"
	"github.com/madhatbot/madhat/internal/engine"
	"github.com/madhatbot/madhat/internal/observe"
)

// pauseTimeFormat renders the pause expiry in the room's display timezone.
const pauseTimeFormat = "3:04 PM MST"

// ShuffleCommands holds the dependencies for /pause, /resume, /stop and
// /start. Stop and start are only registered when the toggle feature is on.
type ShuffleCommands struct {
	eng     *engine.Engine
	metrics *observe.Metrics
	toggle  bool
}

// NewShuffleCommands creates a ShuffleCommands and registers its handlers
// with the bot's router.
func NewShuffleCommands(bot *discord.Bot, eng *engine.Engine, metrics *observe.Metrics, toggle bool) *ShuffleCommands {
	sc := &ShuffleCommands{eng: eng, metrics: metrics, toggle: toggle}
	sc.Register(bot.Router())
	return sc
}

// Register registers the shuffle-control commands with the router.
func (sc *ShuffleCommands) Register(router *discord.CommandRouter) {
	defs := sc.Definitions()
	router.RegisterCommand("pause", defs[0], sc.handlePause)
	router.RegisterCommand("resume", defs[1], sc.handleResume)
	if sc.toggle {
		router.RegisterCommand("stop", defs[2], sc.handleStop)
		router.RegisterCommand("start", defs[3], sc.handleStart)
	}
}

// Definitions returns the ApplicationCommand definitions in registration
// order: pause, resume, stop, start.
func (sc *ShuffleCommands) Definitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "pause",
			Description: "Pauses nickname shuffling for a while.",
		},
		{
			Name:        "resume",
			Description: "Resumes nickname shuffling immediately.",
		},
		{
			Name:        "stop",
			Description: "Stops nickname shuffling until started again.",
		},
		{
			Name:        "start",
			Description: "Starts nickname shuffling again.",
		},
	}
}

func (sc *ShuffleCommands) handlePause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}
	until := sc.eng.Pause(i.GuildID)
	sc.record("pause")
	discord.RespondEphemeral(s, i, "Shuffling is paused until "+until.Format(pauseTimeFormat))
}

func (sc *ShuffleCommands) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}
	sc.eng.Resume(i.GuildID)
	sc.record("resume")
	discord.RespondEphemeral(s, i, "Shuffling has resumed.")
}

func (sc *ShuffleCommands) handleStop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}
	err := sc.eng.Stop(i.GuildID)
	sc.record("stop")
	if errors.Is(err, engine.ErrAlreadyStopped) {
		discord.RespondEphemeral(s, i, "Shuffling is already stopped.")
		return
	}
	discord.RespondEphemeral(s, i, "Shuffling has stopped.")
}

func (sc *ShuffleCommands) handleStart(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		discord.RespondEphemeral(s, i, noGuildReply)
		return
	}
	err := sc.eng.Start(i.GuildID)
	sc.record("start")
	if errors.Is(err, engine.ErrAlreadyStarted) {
		discord.RespondEphemeral(s, i, "Shuffling is already started.")
		return
	}
	discord.RespondEphemeral(s, i, "Shuffling has started.")
}

func (sc *ShuffleCommands) record(command string) {
	sc.metrics.Commands.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("command", command),
		attribute.String("status", "ok"),
	))
}
