// Package discord provides the gateway layer for madhat. It owns the
// discordgo.Session lifecycle, routes interactions to registered handlers,
// feeds chat messages to the nickname engine, and adapts gateway member
// data into the engine's types.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/madhatbot/madhat/internal/engine"
	"github.com/madhatbot/madhat/internal/observe"
)

// memberPageSize is the page size used when listing guild members.
const memberPageSize = 1000

// celebration is the reply posted to the channel when a shuffle fires.
var celebration = &discordgo.MessageEmbed{
	Description: "Change Places!",
	Image: &discordgo.MessageEmbedImage{
		URL: "https://tenor.com/view/futurama-change-places-musical-chairs-gif-14252770",
	},
}

// Config holds Discord gateway configuration.
type Config struct {
	// Token is the bot token (without the "Bot " prefix).
	Token string

	// BotNickname is the nickname the bot sets for itself on guild ready
	// when SelfRename is on.
	BotNickname string

	// SelfRename enables the self-nickname on guild ready.
	SelfRename bool
}

// Bot owns the Discord gateway connection and routes events into the
// nickname engine.
type Bot struct {
	session   *discordgo.Session
	router    *CommandRouter
	engine    *engine.Engine
	metrics   *observe.Metrics
	cfg       Config
	closeOnce sync.Once
}

// New creates a Bot and registers its gateway handlers. The connection is
// not opened until [Bot.Run]. The Bot itself satisfies [engine.Gateway];
// attach the engine with [Bot.AttachEngine] before running.
func New(cfg Config, metrics *observe.Metrics) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		session: session,
		router:  NewCommandRouter(),
		metrics: metrics,
		cfg:     cfg,
	}

	session.AddHandler(b.onGuildCreate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.router.Handle(s, i)
	})

	return b, nil
}

// Compile-time assertion that Bot satisfies the engine's gateway surface.
var _ engine.Gateway = (*Bot)(nil)

// Router returns the command router for registering handlers.
func (b *Bot) Router() *CommandRouter {
	return b.router
}

// AttachEngine wires the nickname engine. Must be called before [Bot.Run].
func (b *Bot) AttachEngine(e *engine.Engine) {
	b.engine = e
}

// Engine returns the nickname engine.
func (b *Bot) Engine() *engine.Engine {
	return b.engine
}

// RenameMember implements [engine.Gateway] by issuing a nickname change
// through the REST API. An empty nickname clears the member's nickname.
func (b *Bot) RenameMember(guildID, memberID, nickname string) error {
	return b.session.GuildMemberNickname(guildID, memberID, nickname)
}

// Connected reports whether the gateway session has identified. Used as a
// readiness check.
func (b *Bot) Connected() bool {
	return b.session.State != nil && b.session.State.User != nil
}

// Run opens the gateway connection and blocks until ctx is cancelled.
// Command registration happens per guild as guilds become ready.
func (b *Bot) Run(ctx context.Context) error {
	if b.engine == nil {
		return errors.New("discord: engine not attached")
	}
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	slog.Info("discord gateway connected")

	<-ctx.Done()
	return ctx.Err()
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("discord: close session: %w", err)
		}
		slog.Info("discord bot closed")
	})
	return closeErr
}

// onGuildCreate handles the room-ready event: engine bootstrap (silent
// restore of any leftover snapshot), per-guild command registration, and
// the optional self-nickname.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	slog.Info("connected to guild", "guild_id", g.ID, "name", g.Name)
	b.metrics.ActiveGuilds.Add(context.Background(), 1)

	if b.cfg.SelfRename && b.cfg.BotNickname != "" {
		go func() {
			if err := s.GuildMemberNickname(g.ID, "@me", b.cfg.BotNickname); err != nil {
				slog.Warn("self nickname failed", "guild_id", g.ID, "err", err)
			}
		}()
	}

	b.engine.Bootstrap(context.Background(), g.ID)

	cmds := b.router.ApplicationCommands()
	if len(cmds) == 0 {
		return
	}
	appID := s.State.User.ID
	if _, err := s.ApplicationCommandBulkOverwrite(appID, g.ID, cmds); err != nil {
		slog.Error("command registration failed", "guild_id", g.ID, "err", err)
		return
	}
	slog.Info("commands registered", "guild_id", g.ID, "count", len(cmds))
}

// onMessageCreate feeds guild chat messages to the engine's trigger path
// and posts the celebratory reply when a shuffle fires.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot {
		return
	}

	self, list, err := b.Roster(s, m.GuildID)
	if err != nil {
		slog.Warn("roster lookup failed", "guild_id", m.GuildID, "err", err)
		return
	}

	ctx := context.Background()
	fired, err := b.engine.HandleMessage(ctx, m.GuildID, m.Content, self, list)
	if err != nil {
		slog.Error("trigger handling failed", "guild_id", m.GuildID, "err", err)
		return
	}
	if !fired {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, celebration); err != nil {
		slog.Warn("celebration reply failed", "channel_id", m.ChannelID, "err", err)
	}
}

// Roster resolves the bot's own member and returns a lazy member lister
// for the guild. The lister pages through the full member list only when
// called.
func (b *Bot) Roster(s *discordgo.Session, guildID string) (engine.Member, func(ctx context.Context) ([]engine.Member, error), error) {
	g, err := b.guild(s, guildID)
	if err != nil {
		return engine.Member{}, nil, err
	}

	selfMember, err := s.State.Member(guildID, s.State.User.ID)
	if err != nil {
		selfMember, err = s.GuildMember(guildID, s.State.User.ID)
		if err != nil {
			return engine.Member{}, nil, fmt.Errorf("discord: resolve self member: %w", err)
		}
	}
	self := ResolveMember(g, selfMember)

	list := func(ctx context.Context) ([]engine.Member, error) {
		var out []engine.Member
		after := ""
		for {
			page, err := s.GuildMembers(guildID, after, memberPageSize, discordgo.WithContext(ctx))
			if err != nil {
				return nil, fmt.Errorf("discord: list members: %w", err)
			}
			for _, m := range page {
				out = append(out, ResolveMember(g, m))
			}
			if len(page) < memberPageSize {
				return out, nil
			}
			after = page[len(page)-1].User.ID
		}
	}
	return self, list, nil
}

// ResolveTarget fetches and resolves a single member by ID.
func (b *Bot) ResolveTarget(s *discordgo.Session, guildID, memberID string) (engine.Member, error) {
	g, err := b.guild(s, guildID)
	if err != nil {
		return engine.Member{}, err
	}
	m, err := s.State.Member(guildID, memberID)
	if err != nil {
		m, err = s.GuildMember(guildID, memberID)
		if err != nil {
			return engine.Member{}, fmt.Errorf("discord: resolve member %s: %w", memberID, err)
		}
	}
	return ResolveMember(g, m), nil
}

func (b *Bot) guild(s *discordgo.Session, guildID string) (*discordgo.Guild, error) {
	g, err := s.State.Guild(guildID)
	if err == nil {
		return g, nil
	}
	g, err = s.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("discord: resolve guild %s: %w", guildID, err)
	}
	return g, nil
}
