package engine

// Member is the engine's view of one guild member at the time of an
// operation. It is built by the gateway layer and never cached beyond the
// scope of a single operation.
type Member struct {
	// ID is the member's snowflake.
	ID string

	// Nickname is the member's current guild nickname, empty if none.
	Nickname string

	// DisplayName is the name shown when no nickname is set.
	DisplayName string

	// IsBot reports whether the member is a bot account.
	IsBot bool

	// IsOwner reports whether the member owns the guild.
	IsOwner bool

	// RolePos is the position of the member's highest role. Higher
	// positions outrank lower ones.
	RolePos int

	// CanManageNicknames reports whether the member holds the
	// manage-nicknames permission. Only consulted for the bot itself.
	CanManageNicknames bool
}

// EffectiveName returns the nickname if set, else the display name. This is
// the candidate name a member contributes to a shuffle.
func (m Member) EffectiveName() string {
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.DisplayName
}
