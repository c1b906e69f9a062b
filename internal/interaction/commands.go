package interaction

// Command names are matched case-insensitively.
const (
	CommandPing   = "ping"
	CommandRevive = "revive"
	CommandTest   = "test"
)

// Component and modal custom ids.
const (
	CustomIDTest      = "test"
	CustomIDNameInput = "name"
)

// CommandType is the kind of application command being registered.
type CommandType int

// CommandChatInput is a slash command.
const CommandChatInput CommandType = 1

// ApplicationCommand is the registration payload for one slash command.
type ApplicationCommand struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Type        CommandType `json:"type"`
}

// Commands returns every command the dispatcher answers, in registration order.
func Commands() []ApplicationCommand {
	return []ApplicationCommand{
		{Name: CommandPing, Description: "Check the latency of the bot", Type: CommandChatInput},
		{Name: CommandRevive, Description: "Ping the revive role to get the chat active again", Type: CommandChatInput},
		{Name: CommandTest, Description: "Open a test modal", Type: CommandChatInput},
	}
}
