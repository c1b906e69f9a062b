package domain

import "encoding/json"

// InteractionType is the top-level kind of an inbound interaction.
type InteractionType int

const (
	InteractionPing                           InteractionType = 1
	InteractionApplicationCommand             InteractionType = 2
	InteractionMessageComponent               InteractionType = 3
	InteractionApplicationCommandAutocomplete InteractionType = 4
	InteractionModalSubmit                    InteractionType = 5
)

func (t InteractionType) String() string {
	switch t {
	case InteractionPing:
		return "PING"
	case InteractionApplicationCommand:
		return "APPLICATION_COMMAND"
	case InteractionMessageComponent:
		return "MESSAGE_COMPONENT"
	case InteractionApplicationCommandAutocomplete:
		return "APPLICATION_COMMAND_AUTOCOMPLETE"
	case InteractionModalSubmit:
		return "MODAL_SUBMIT"
	default:
		return "UNKNOWN"
	}
}

// ResponseType is the kind of an interaction response.
type ResponseType int

const (
	ResponsePong                     ResponseType = 1
	ResponseChannelMessageWithSource ResponseType = 4
	ResponseDeferredChannelMessage   ResponseType = 5
	ResponseDeferredUpdateMessage    ResponseType = 6
	ResponseUpdateMessage            ResponseType = 7
	ResponseAutocompleteResult       ResponseType = 8
	ResponseModal                    ResponseType = 9
)

// MessageFlagEphemeral limits a reply to the invoking user.
const MessageFlagEphemeral = 1 << 6

// ComponentType enumerates message component kinds.
type ComponentType int

const (
	ComponentActionRow ComponentType = 1
	ComponentButton    ComponentType = 2
	ComponentTextInput ComponentType = 4
)

// TextInputStyle selects a single-line or paragraph text input.
type TextInputStyle int

const (
	TextInputShort     TextInputStyle = 1
	TextInputParagraph TextInputStyle = 2
)

// Interaction is the decoded body of a signed interaction request.
type Interaction struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"application_id"`
	Type          InteractionType `json:"type"`
	Data          InteractionData `json:"data"`
	GuildID       string          `json:"guild_id,omitempty"`
	ChannelID     string          `json:"channel_id,omitempty"`
	Member        *Member         `json:"member,omitempty"`
	User          *User           `json:"user,omitempty"`
	Token         string          `json:"token"`
	Version       int             `json:"version"`
}

// InteractionData carries the type-specific part of an interaction.
type InteractionData struct {
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Type       int             `json:"type,omitempty"`
	CustomID   string          `json:"custom_id,omitempty"`
	Options    []CommandOption `json:"options,omitempty"`
	Components []Component     `json:"components,omitempty"`
	Values     []string        `json:"values,omitempty"`
	Resolved   json.RawMessage `json:"resolved,omitempty"`
}

// CommandOption is a slash-command option value as sent by the platform.
type CommandOption struct {
	Name    string          `json:"name"`
	Type    int             `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	Focused bool            `json:"focused,omitempty"`
}

// Member is the guild member that triggered an interaction.
type Member struct {
	User  *User    `json:"user,omitempty"`
	Roles []string `json:"roles"`
	Nick  string   `json:"nick,omitempty"`
}

// HasRole reports whether the member holds roleID.
func (m *Member) HasRole(roleID string) bool {
	if m == nil {
		return false
	}
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// Component is a message or modal component, also used for submitted modal values.
type Component struct {
	Type        ComponentType  `json:"type"`
	CustomID    string         `json:"custom_id,omitempty"`
	Label       string         `json:"label,omitempty"`
	Style       TextInputStyle `json:"style,omitempty"`
	MinLength   int            `json:"min_length,omitempty"`
	MaxLength   int            `json:"max_length,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Value       string         `json:"value,omitempty"`
	Components  []Component    `json:"components,omitempty"`
}

// InteractionResponse is the JSON body answered to an interaction.
type InteractionResponse struct {
	Type ResponseType `json:"type"`
	Data any          `json:"data,omitempty"`
}

// MessageData is the payload of a channel message response.
type MessageData struct {
	Content         string           `json:"content"`
	Flags           int              `json:"flags,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
}

// AllowedMentions restricts which mentions in a message ping.
type AllowedMentions struct {
	Roles []string `json:"roles"`
}

// AutocompleteData lists autocomplete choices.
type AutocompleteData struct {
	Choices []Choice `json:"choices"`
}

// Choice is one autocomplete suggestion.
type Choice struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ModalData opens a modal dialog.
type ModalData struct {
	CustomID   string      `json:"custom_id"`
	Title      string      `json:"title"`
	Components []Component `json:"components"`
}

// ErrorBody is returned with 400 for unsupported interactions.
type ErrorBody struct {
	Error string `json:"error"`
}
