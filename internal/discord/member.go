package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/madhatbot/madhat/internal/engine"
)

// ResolveMember builds the engine's view of a guild member from the raw
// gateway types: highest role position, owner flag, and whether the member
// holds the manage-nicknames permission (directly, via administrator, or as
// guild owner).
func ResolveMember(g *discordgo.Guild, m *discordgo.Member) engine.Member {
	positions := make(map[string]int, len(g.Roles))
	perms := make(map[string]int64, len(g.Roles))
	for _, role := range g.Roles {
		positions[role.ID] = role.Position
		perms[role.ID] = role.Permissions
	}

	var rolePos int
	var permBits int64
	// The @everyone role shares the guild's ID and applies to every member.
	permBits |= perms[g.ID]
	for _, roleID := range m.Roles {
		if p, ok := positions[roleID]; ok && p > rolePos {
			rolePos = p
		}
		permBits |= perms[roleID]
	}

	isOwner := m.User != nil && m.User.ID == g.OwnerID
	canManage := isOwner ||
		permBits&discordgo.PermissionAdministrator != 0 ||
		permBits&discordgo.PermissionManageNicknames != 0

	out := engine.Member{
		Nickname:           m.Nick,
		IsOwner:            isOwner,
		RolePos:            rolePos,
		CanManageNicknames: canManage,
	}
	if m.User != nil {
		out.ID = m.User.ID
		out.IsBot = m.User.Bot
		out.DisplayName = m.User.GlobalName
		if out.DisplayName == "" {
			out.DisplayName = m.User.Username
		}
	}
	return out
}
