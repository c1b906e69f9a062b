package interaction

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/linkedroles-worker/internal/domain"
)

// UnknownType is the error body for interactions the worker does not handle.
const UnknownType = "Unknown Type"

// Options configures the role gate of the revive command.
type Options struct {
	ReviveRequiredRoleID string
	ReviveTargetRoleID   string
	ReviveContact        string
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Result is the HTTP status and JSON body answered to an interaction.
type Result struct {
	Status int
	Body   any
}

// Dispatcher maps a verified interaction to its response. It holds no per-request state.
type Dispatcher struct {
	opts   Options
	logger *zap.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts Options, logger *zap.Logger) *Dispatcher {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Dispatcher{opts: opts, logger: logger}
}

// Dispatch answers in. Every branch produces a response; unsupported input yields 400.
func (d *Dispatcher) Dispatch(in domain.Interaction) Result {
	switch in.Type {
	case domain.InteractionPing:
		return ok(domain.InteractionResponse{Type: domain.ResponsePong})
	case domain.InteractionApplicationCommandAutocomplete:
		return d.autocomplete()
	case domain.InteractionMessageComponent:
		return d.component(in)
	case domain.InteractionModalSubmit:
		return d.modalSubmit(in)
	case domain.InteractionApplicationCommand:
		return d.command(in)
	default:
		d.logger.Warn("unknown interaction type", zap.Int("type", int(in.Type)), zap.String("interaction_id", in.ID))
		return unknownType()
	}
}

func (d *Dispatcher) autocomplete() Result {
	commands := Commands()
	choices := make([]domain.Choice, 0, len(commands))
	for _, cmd := range commands {
		choices = append(choices, domain.Choice{Name: cmd.Name, Value: cmd.Name})
	}
	return ok(domain.InteractionResponse{
		Type: domain.ResponseAutocompleteResult,
		Data: domain.AutocompleteData{Choices: choices},
	})
}

func (d *Dispatcher) component(in domain.Interaction) Result {
	switch in.Data.CustomID {
	case CustomIDTest:
		return ok(struct{}{})
	default:
		d.logger.Warn("unknown component", zap.String("custom_id", in.Data.CustomID))
		return unknownType()
	}
}

func (d *Dispatcher) modalSubmit(in domain.Interaction) Result {
	d.logger.Debug("modal submitted",
		zap.String("custom_id", in.Data.CustomID),
		zap.Int("fields", len(submittedValues(in.Data.Components))),
	)
	return ok(domain.InteractionResponse{
		Type: domain.ResponseChannelMessageWithSource,
		Data: domain.MessageData{Content: "Thanks for submitting!"},
	})
}

func (d *Dispatcher) command(in domain.Interaction) Result {
	switch strings.ToLower(in.Data.Name) {
	case CommandRevive:
		return d.revive(in)
	case CommandTest:
		return ok(domain.InteractionResponse{Type: domain.ResponseModal, Data: testModal()})
	case CommandPing:
		return d.ping(in)
	default:
		d.logger.Warn("unknown command", zap.String("name", in.Data.Name))
		return unknownType()
	}
}

func (d *Dispatcher) revive(in domain.Interaction) Result {
	if in.Member.HasRole(d.opts.ReviveRequiredRoleID) {
		d.logger.Info("handling revive request", zap.String("guild_id", in.GuildID))
		target := d.opts.ReviveTargetRoleID
		return ok(domain.InteractionResponse{
			Type: domain.ResponseChannelMessageWithSource,
			Data: domain.MessageData{
				Content:         fmt.Sprintf("Hey there <@&%s> squad, it's time to make the chat active!", target),
				AllowedMentions: &domain.AllowedMentions{Roles: []string{target}},
			},
		})
	}
	return ok(domain.InteractionResponse{
		Type: domain.ResponseChannelMessageWithSource,
		Data: domain.MessageData{
			Content: fmt.Sprintf("You do not have the correct role necessary to perform this action. "+
				"If you believe this is an error, please contact %s.", d.opts.ReviveContact),
			Flags: domain.MessageFlagEphemeral,
		},
	})
}

func (d *Dispatcher) ping(in domain.Interaction) Result {
	latency, err := LatencyMillis(in.ID, d.opts.Clock())
	if err != nil {
		d.logger.Warn("ping with undecodable id", zap.Error(err))
		return Result{Status: http.StatusBadRequest, Body: domain.ErrorBody{Error: "Invalid ID"}}
	}
	return ok(domain.InteractionResponse{
		Type: domain.ResponseChannelMessageWithSource,
		Data: domain.MessageData{
			Content: fmt.Sprintf("Pong! Latency: %dms (rounded to nearest integer)", latency),
		},
	})
}

func testModal() domain.ModalData {
	return domain.ModalData{
		CustomID: CustomIDTest,
		Title:    "Test",
		Components: []domain.Component{{
			Type: domain.ComponentActionRow,
			Components: []domain.Component{{
				Type:        domain.ComponentTextInput,
				CustomID:    CustomIDNameInput,
				Label:       "Name",
				Style:       domain.TextInputShort,
				MinLength:   1,
				MaxLength:   4000,
				Placeholder: "John",
				Required:    true,
			}},
		}},
	}
}

// submittedValues flattens the text inputs of a modal submission by custom id.
func submittedValues(components []domain.Component) map[string]string {
	values := map[string]string{}
	for _, c := range components {
		if c.Type == domain.ComponentTextInput {
			values[c.CustomID] = c.Value
		}
		for k, v := range submittedValues(c.Components) {
			values[k] = v
		}
	}
	return values
}

func ok(body any) Result {
	return Result{Status: http.StatusOK, Body: body}
}

func unknownType() Result {
	return Result{Status: http.StatusBadRequest, Body: domain.ErrorBody{Error: UnknownType}}
}
