package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/madhatbot/madhat/internal/discord/mock"
)

func newInteraction() *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}
}

func TestRespondEphemeral(t *testing.T) {
	t.Parallel()

	m := &mock.InteractionResponder{}
	RespondEphemeral(m, newInteraction(), "hello")

	resp := m.LastResponse()
	if resp == nil {
		t.Fatal("expected a response to be recorded")
	}
	if resp.Type != discordgo.InteractionResponseChannelMessageWithSource {
		t.Errorf("unexpected response type %v", resp.Type)
	}
	if resp.Data.Content != "hello" {
		t.Errorf("expected content %q, got %q", "hello", resp.Data.Content)
	}
	if resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Error("expected the ephemeral flag to be set")
	}
}

func TestRespondError(t *testing.T) {
	t.Parallel()

	m := &mock.InteractionResponder{}
	RespondError(m, newInteraction(), errors.New("boom"))

	resp := m.LastResponse()
	if resp == nil {
		t.Fatal("expected a response to be recorded")
	}
	if resp.Data.Content != "Error: boom" {
		t.Errorf("unexpected content %q", resp.Data.Content)
	}
}

func TestDeferThenFollowUp(t *testing.T) {
	t.Parallel()

	m := &mock.InteractionResponder{}
	i := newInteraction()

	DeferReply(m, i)
	FollowUp(m, i, "done")

	resp := m.LastResponse()
	if resp == nil || resp.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Fatalf("expected a deferred response, got %+v", resp)
	}
	fu := m.LastFollowUp()
	if fu == nil {
		t.Fatal("expected a follow-up to be recorded")
	}
	if fu.Content != "done" {
		t.Errorf("expected follow-up content %q, got %q", "done", fu.Content)
	}
}

func TestRespondModal(t *testing.T) {
	t.Parallel()

	m := &mock.InteractionResponder{}
	RespondModal(m, newInteraction(), &discordgo.InteractionResponseData{
		CustomID: "modal:42",
		Title:    "Test",
	})

	resp := m.LastResponse()
	if resp == nil || resp.Type != discordgo.InteractionResponseModal {
		t.Fatalf("expected a modal response, got %+v", resp)
	}
	if resp.Data.CustomID != "modal:42" {
		t.Errorf("unexpected custom id %q", resp.Data.CustomID)
	}
}

// Error injection must not panic; the helpers only log.
func TestRespondHelpersSwallowErrors(t *testing.T) {
	t.Parallel()

	m := &mock.InteractionResponder{Err: errors.New("gateway down")}
	i := newInteraction()
	RespondEphemeral(m, i, "x")
	DeferReply(m, i)
	FollowUp(m, i, "x")
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	r := NewCommandRouter()
	var gotCommand, gotModal bool
	r.RegisterCommand("ping", &discordgo.ApplicationCommand{Name: "ping"},
		func(*discordgo.Session, *discordgo.InteractionCreate) { gotCommand = true })
	r.RegisterModalPrefix("box:",
		func(*discordgo.Session, *discordgo.InteractionCreate) { gotModal = true })

	r.Handle(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: "ping"},
	}})
	if !gotCommand {
		t.Error("expected the ping handler to run")
	}

	r.Handle(nil, &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionModalSubmit,
		Data: discordgo.ModalSubmitInteractionData{CustomID: "box:123"},
	}})
	if !gotModal {
		t.Error("expected the modal handler to run")
	}

	cmds := r.ApplicationCommands()
	if len(cmds) != 1 || cmds[0].Name != "ping" {
		t.Errorf("unexpected command definitions: %+v", cmds)
	}
}
