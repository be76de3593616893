// Package engine implements the per-guild nickname state machine: direct
// renames, point-in-time nickname backups, restores, and the
// message-triggered nickname shuffle, together with the pause/resume and
// stop/start gates that control triggering.
//
// The engine is gateway-agnostic: it reads member lists supplied by the
// caller and issues rename calls through the narrow [Gateway] interface.
// Replies to users are the caller's concern; every rejected operation is
// reported through one of the sentinel errors below.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/madhatbot/madhat/internal/backup"
	"github.com/madhatbot/madhat/internal/observe"
	"github.com/madhatbot/madhat/internal/roomstate"
)

// Sentinel errors for rejected operations. Callers map these to
// user-visible replies; none of them leave state mutated.
var (
	// ErrShuffleActive rejects direct renames and new triggers while
	// nicknames are shuffled. Restore first.
	ErrShuffleActive = errors.New("engine: nicknames are currently shuffled")

	// ErrNoManagePermission means the bot lacks the manage-nicknames
	// permission in the guild.
	ErrNoManagePermission = errors.New("engine: missing manage nicknames permission")

	// ErrTargetIsSelf rejects attempts to rename the bot itself.
	ErrTargetIsSelf = errors.New("engine: cannot rename the bot itself")

	// ErrTargetOutranks means the target sits above the bot in the role
	// hierarchy.
	ErrTargetOutranks = errors.New("engine: target outranks the bot")

	// ErrNicknameTooLong rejects nicknames over [MaxNicknameLength].
	ErrNicknameTooLong = errors.New("engine: nickname exceeds the maximum length")

	// ErrNoBackup means there is no stored snapshot to restore.
	ErrNoBackup = errors.New("engine: no backup to restore")

	// ErrAlreadyStopped and ErrAlreadyStarted report idempotent
	// stop/start calls. No state changes.
	ErrAlreadyStopped = errors.New("engine: shuffling is already stopped")
	ErrAlreadyStarted = errors.New("engine: shuffling is already started")
)

// Gateway is the slice of the chat gateway the engine mutates through.
// Rename calls are issued fire-and-forget: the engine never blocks an
// operation on their completion.
type Gateway interface {
	// RenameMember sets a member's nickname. An empty nickname clears it.
	RenameMember(guildID, memberID, nickname string) error
}

// Config holds engine tunables. The zero value selects the defaults noted
// on each field.
type Config struct {
	// Keywords trigger a shuffle when present in a message.
	// Default: [DefaultKeywords].
	Keywords []string

	// CaseSensitive controls keyword matching. Default: false.
	CaseSensitive bool

	// PauseDuration is how long /pause suppresses triggers. Default: 1h.
	PauseDuration time.Duration

	// DisplayTimezone renders the pause expiry in replies. Default: UTC.
	DisplayTimezone *time.Location

	// ShuffleToggle enables the per-guild stop/start gate. When false the
	// gate is ignored and triggering is always on (modulo pause and the
	// active-shuffle check).
	ShuffleToggle bool
}

// Engine orchestrates nickname operations for all guilds. All per-guild
// transitions run under that guild's lock in the state store; different
// guilds proceed in parallel.
type Engine struct {
	states  *roomstate.Store
	backups backup.Store
	gw      Gateway
	cfg     Config
	metrics *observe.Metrics
	now     func() time.Time
}

// New creates an Engine. metrics must be non-nil; pass instruments built
// from a no-op meter provider to discard them.
func New(states *roomstate.Store, backups backup.Store, gw Gateway, cfg Config, metrics *observe.Metrics) *Engine {
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = DefaultKeywords
	}
	if cfg.PauseDuration <= 0 {
		cfg.PauseDuration = time.Hour
	}
	if cfg.DisplayTimezone == nil {
		cfg.DisplayTimezone = time.UTC
	}
	return &Engine{
		states:  states,
		backups: backups,
		gw:      gw,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
	}
}

// State returns a snapshot of the guild's engine state.
func (e *Engine) State(guildID string) roomstate.State {
	return e.states.Get(guildID)
}

// Bootstrap prepares a guild on room-ready: it synthesizes default state
// and silently restores any snapshot left over from a previous process, so
// a restart does not leave nicknames stuck shuffled. Storage errors fail
// open (treated as "no backup") and are only logged.
func (e *Engine) Bootstrap(ctx context.Context, guildID string) {
	err := e.states.Update(guildID, func(st *roomstate.State) error {
		snap, err := e.backups.Load(ctx, guildID)
		if err != nil {
			slog.Warn("bootstrap restore skipped", "guild_id", guildID, "err", err)
			return nil
		}
		if len(snap) == 0 {
			return nil
		}
		n := e.applySnapshot(ctx, guildID, snap)
		if err := e.backups.Delete(ctx, guildID); err != nil {
			slog.Warn("bootstrap snapshot delete failed", "guild_id", guildID, "err", err)
		}
		st.ShuffleActive = false
		slog.Info("restored nicknames on startup", "guild_id", guildID, "members", n)
		return nil
	})
	if err != nil {
		slog.Warn("bootstrap failed", "guild_id", guildID, "err", err)
	}
}

// RenameOne changes a single member's nickname. An empty nickname reverts
// the member to their username. actor names the invoking user for the log.
func (e *Engine) RenameOne(ctx context.Context, guildID, actor string, self, target Member, nickname string) error {
	return e.states.Update(guildID, func(st *roomstate.State) error {
		if st.ShuffleActive {
			return ErrShuffleActive
		}
		if !self.CanManageNicknames {
			return ErrNoManagePermission
		}
		if target.ID == self.ID {
			return ErrTargetIsSelf
		}
		if !outranks(self, target) {
			return ErrTargetOutranks
		}
		if !ValidNickname(nickname) {
			return ErrNicknameTooLong
		}

		e.rename(guildID, target.ID, nickname, "rename_one")
		slog.Info("nickname changed",
			"guild_id", guildID,
			"actor", actor,
			"target", target.DisplayName,
			"nickname", nickname,
		)
		return nil
	})
}

// Backup snapshots the current nicknames of all eligible members,
// overwriting any prior snapshot for the guild. Returns the number of
// members captured.
func (e *Engine) Backup(ctx context.Context, guildID string, self Member, members []Member) (int, error) {
	var n int
	err := e.states.Update(guildID, func(*roomstate.State) error {
		var err error
		n, err = e.backupLocked(ctx, guildID, self, members)
		return err
	})
	return n, err
}

// backupLocked snapshots eligible members. Callers hold the guild lock.
func (e *Engine) backupLocked(ctx context.Context, guildID string, self Member, members []Member) (int, error) {
	snap := backup.Snapshot{}
	for _, m := range EligibleMembers(self, members) {
		snap[m.ID] = m.Nickname
	}
	if err := e.backups.Save(ctx, guildID, snap); err != nil {
		return 0, err
	}
	return len(snap), nil
}

// Restore reapplies the stored snapshot, deletes it, and clears the
// shuffle-active flag. Returns [ErrNoBackup] if no snapshot exists, and the
// number of members restored otherwise.
func (e *Engine) Restore(ctx context.Context, guildID string) (int, error) {
	var n int
	err := e.states.Update(guildID, func(st *roomstate.State) error {
		snap, err := e.backups.Load(ctx, guildID)
		if err != nil {
			return err
		}
		if len(snap) == 0 {
			return ErrNoBackup
		}
		n = e.applySnapshot(ctx, guildID, snap)
		if err := e.backups.Delete(ctx, guildID); err != nil {
			return err
		}
		st.ShuffleActive = false
		e.metrics.Restores.Add(ctx, 1)
		return nil
	})
	return n, err
}

// HandleMessage evaluates a chat message against the trigger keywords and,
// if the guild is idle, unpaused, and enabled, fires a shuffle: backup,
// permutation, one rename call per eligible member, shuffle-active set.
// listMembers is only invoked when a shuffle is about to fire.
//
// Returns true when a shuffle fired. A matched keyword that is suppressed
// (paused, already shuffled, or stopped) returns false with no error and
// no state change.
func (e *Engine) HandleMessage(ctx context.Context, guildID, text string, self Member, listMembers func(ctx context.Context) ([]Member, error)) (bool, error) {
	if !ContainsAny(text, e.cfg.Keywords, e.cfg.CaseSensitive) {
		return false, nil
	}

	fired := false
	err := e.states.Update(guildID, func(st *roomstate.State) error {
		now := e.now()
		switch {
		case st.Paused(now):
			e.suppressed(ctx, "paused")
			return nil
		case st.ShuffleActive:
			e.suppressed(ctx, "active")
			return nil
		case e.cfg.ShuffleToggle && !st.ShuffleEnabled:
			e.suppressed(ctx, "stopped")
			return nil
		}

		members, err := listMembers(ctx)
		if err != nil {
			return err
		}
		eligible := EligibleMembers(self, members)
		if len(eligible) == 0 {
			return nil
		}

		if _, err := e.backupLocked(ctx, guildID, self, members); err != nil {
			return err
		}

		for memberID, name := range ComputeShuffle(eligible) {
			e.rename(guildID, memberID, name, "shuffle")
		}
		st.ShuffleActive = true
		fired = true

		e.metrics.Shuffles.Add(ctx, 1)
		e.metrics.ShuffleDuration.Record(ctx, time.Since(now).Seconds())
		slog.Info("nicknames shuffled", "guild_id", guildID, "members", len(eligible))
		return nil
	})
	return fired, err
}

// Pause suppresses triggered shuffles for the configured duration and
// returns the expiry instant in the display timezone.
func (e *Engine) Pause(guildID string) time.Time {
	until := e.now().Add(e.cfg.PauseDuration)
	e.states.SetPausedUntil(guildID, until)
	slog.Info("shuffling paused", "guild_id", guildID, "until", until)
	return until.In(e.cfg.DisplayTimezone)
}

// Resume clears any pause.
func (e *Engine) Resume(guildID string) {
	e.states.SetPausedUntil(guildID, time.Time{})
	slog.Info("shuffling resumed", "guild_id", guildID)
}

// Stop disables triggered shuffles for the guild. Returns
// [ErrAlreadyStopped] if already disabled.
func (e *Engine) Stop(guildID string) error {
	return e.states.Update(guildID, func(st *roomstate.State) error {
		if !st.ShuffleEnabled {
			return ErrAlreadyStopped
		}
		st.ShuffleEnabled = false
		slog.Info("shuffling stopped", "guild_id", guildID)
		return nil
	})
}

// Start enables triggered shuffles for the guild. Returns
// [ErrAlreadyStarted] if already enabled.
func (e *Engine) Start(guildID string) error {
	return e.states.Update(guildID, func(st *roomstate.State) error {
		if st.ShuffleEnabled {
			return ErrAlreadyStarted
		}
		st.ShuffleEnabled = true
		slog.Info("shuffling started", "guild_id", guildID)
		return nil
	})
}

// applySnapshot issues one rename call per snapshot entry and returns the
// entry count. Calls are fire-and-forget; partial failure is not rolled
// back.
func (e *Engine) applySnapshot(ctx context.Context, guildID string, snap backup.Snapshot) int {
	for memberID, nickname := range snap {
		e.rename(guildID, memberID, nickname, "restore")
	}
	return len(snap)
}

// rename issues a single fire-and-forget nickname mutation.
func (e *Engine) rename(guildID, memberID, nickname, op string) {
	go func() {
		if err := e.gw.RenameMember(guildID, memberID, nickname); err != nil {
			slog.Warn("rename call failed",
				"guild_id", guildID,
				"member_id", memberID,
				"op", op,
				"err", err,
			)
			return
		}
		e.metrics.Renames.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("op", op)))
	}()
}

func (e *Engine) suppressed(ctx context.Context, reason string) {
	e.metrics.TriggerSuppressed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)))
}
