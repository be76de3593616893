// Package roomstate tracks the per-guild nickname engine state: whether a
// shuffle is currently live, whether message-triggered shuffles are enabled,
// and an optional pause deadline. It is the single source of truth consulted
// and mutated by every engine operation.
package roomstate

import (
	"sync"
	"time"
)

// State is the engine state for one guild. Absent state is synthesized as
// defaults on first access, so there is no "not found" condition.
type State struct {
	// GuildID identifies the guild this state belongs to.
	GuildID string

	// ShuffleActive is true while nicknames differ from the last backup.
	// Only a successful restore clears it.
	ShuffleActive bool

	// ShuffleEnabled gates message-triggered shuffles for this guild,
	// toggled by the stop/start commands.
	ShuffleEnabled bool

	// PausedUntil suppresses triggered shuffles until the given instant.
	// The zero value means not paused.
	PausedUntil time.Time
}

// Paused reports whether the state is paused at instant now.
func (s State) Paused(now time.Time) bool {
	return !s.PausedUntil.IsZero() && now.Before(s.PausedUntil)
}

// Store holds one State per guild with one exclusive lock per guild.
// Operations on different guilds proceed fully in parallel; operations on
// the same guild serialize.
type Store struct {
	mu        sync.Mutex // guards the guilds map, never held during fn
	guilds    map[string]*entry
	defaultOn bool
}

type entry struct {
	mu    sync.Mutex
	state State
}

// NewStore returns a Store whose synthesized default states have
// ShuffleEnabled set to defaultOn.
func NewStore(defaultOn bool) *Store {
	return &Store{
		guilds:    make(map[string]*entry),
		defaultOn: defaultOn,
	}
}

// Get returns a snapshot of the guild's state, creating the default state
// on first access.
func (s *Store) Get(guildID string) State {
	e := s.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Update runs fn with exclusive access to the guild's state. Any mutation
// fn makes is retained. Multi-step transitions (check, mutate, persist)
// belong inside a single Update call so that two concurrent evaluations for
// the same guild cannot interleave. The error returned by fn is returned
// unchanged.
func (s *Store) Update(guildID string, fn func(*State) error) error {
	e := s.entry(guildID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.state)
}

// SetShuffleActive sets the shuffle-active flag for the guild.
func (s *Store) SetShuffleActive(guildID string, active bool) {
	_ = s.Update(guildID, func(st *State) error {
		st.ShuffleActive = active
		return nil
	})
}

// SetPausedUntil sets the pause deadline for the guild. The zero time
// clears the pause.
func (s *Store) SetPausedUntil(guildID string, until time.Time) {
	_ = s.Update(guildID, func(st *State) error {
		st.PausedUntil = until
		return nil
	})
}

// ShuffleEnabled reports whether message-triggered shuffles are enabled
// for the guild.
func (s *Store) ShuffleEnabled(guildID string) bool {
	return s.Get(guildID).ShuffleEnabled
}

// SetShuffleEnabled sets the shuffle feature toggle for the guild.
func (s *Store) SetShuffleEnabled(guildID string, enabled bool) {
	_ = s.Update(guildID, func(st *State) error {
		st.ShuffleEnabled = enabled
		return nil
	})
}

func (s *Store) entry(guildID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.guilds[guildID]
	if !ok {
		e = &entry{state: State{GuildID: guildID, ShuffleEnabled: s.defaultOn}}
		s.guilds[guildID] = e
	}
	return e
}
