package commands

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/madhatbot/madhat/internal/engine"
)

func TestNicknameDefinitions(t *testing.T) {
	t.Parallel()

	defs := (&NicknameCommands{}).Definitions()
	if len(defs) != 4 {
		t.Fatalf("expected 4 definitions, got %d", len(defs))
	}

	nn := defs[0]
	if nn.Name != "nn" {
		t.Errorf("expected first command to be nn, got %q", nn.Name)
	}
	if len(nn.Options) != 2 {
		t.Fatalf("expected nn to have 2 options, got %d", len(nn.Options))
	}
	if nn.Options[0].Name != "user" || !nn.Options[0].Required {
		t.Errorf("expected required user option, got %+v", nn.Options[0])
	}
	if nn.Options[1].Name != "nickname" || nn.Options[1].Required {
		t.Errorf("expected optional nickname option, got %+v", nn.Options[1])
	}

	if defs[1].Name != "nnbackup" || defs[2].Name != "nnrestore" {
		t.Errorf("unexpected backup/restore names: %q, %q", defs[1].Name, defs[2].Name)
	}

	menu := defs[3]
	if menu.Name != "Change Nickname" {
		t.Errorf("expected context-menu command name, got %q", menu.Name)
	}
	if menu.Type != discordgo.UserApplicationCommand {
		t.Errorf("expected user command type, got %v", menu.Type)
	}
}

func TestShuffleDefinitions(t *testing.T) {
	t.Parallel()

	defs := (&ShuffleCommands{}).Definitions()
	want := []string{"pause", "resume", "stop", "start"}
	if len(defs) != len(want) {
		t.Fatalf("expected %d definitions, got %d", len(want), len(defs))
	}
	for n, name := range want {
		if defs[n].Name != name {
			t.Errorf("definition %d: expected %q, got %q", n, name, defs[n].Name)
		}
	}
}

func TestRenameReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{engine.ErrShuffleActive, "Nicknames cannot be changed while they are shuffled, to proceed use /restore"},
		{engine.ErrNoManagePermission, "Error: I don't have permission to manage nicknames."},
		{engine.ErrTargetIsSelf, "You cannot change my nickname"},
		{engine.ErrTargetOutranks, "That user is too powerful for me to change their nickname"},
		{engine.ErrNicknameTooLong, "That name is over the max length of 32 characters"},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tc := range tests {
		if got := RenameReply(tc.err); got != tc.want {
			t.Errorf("RenameReply(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
