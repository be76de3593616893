package engine

import "unicode/utf8"

// MaxNicknameLength is Discord's hard limit on nickname length.
const MaxNicknameLength = 32

// CanRename reports whether the bot (self) may rename target: the bot must
// hold the manage-nicknames permission, must not be the target, and must
// outrank the target in the role hierarchy. Pure predicate, no side effects.
func CanRename(self, target Member) bool {
	if !self.CanManageNicknames {
		return false
	}
	if target.ID == self.ID {
		return false
	}
	return outranks(self, target)
}

// ValidNickname reports whether s may be used as a nickname. The empty
// string is valid and means "clear nickname".
func ValidNickname(s string) bool {
	return utf8.RuneCountInString(s) <= MaxNicknameLength
}

// outranks reports whether a sits above b in the role hierarchy. The guild
// owner outranks everyone regardless of roles.
func outranks(a, b Member) bool {
	if a.IsOwner {
		return true
	}
	if b.IsOwner {
		return false
	}
	return a.RolePos > b.RolePos
}

// EligibleMembers filters members down to those the bot may shuffle: every
// member except the bot itself and anyone the bot cannot rename.
func EligibleMembers(self Member, members []Member) []Member {
	eligible := make([]Member, 0, len(members))
	for _, m := range members {
		if CanRename(self, m) {
			eligible = append(eligible, m)
		}
	}
	return eligible
}
