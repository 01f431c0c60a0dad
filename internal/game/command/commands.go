// Package command provides the command registry, parser, and built-in command definitions.
package command

// Categories for organizing commands.
const (
	CategoryBattle   = "battle"
	CategoryCampaign = "campaign"
	CategorySystem   = "system"
)

// Handler identifiers mapping commands to console actions.
const (
	HandlerSkill     = "skill"
	HandlerResonate  = "resonate"
	HandlerItem      = "item"
	HandlerAbandon   = "abandon"
	HandlerStatus    = "status"
	HandlerSkills    = "skills"
	HandlerInventory = "inventory"
	HandlerFight     = "fight"
	HandlerNew       = "new"
	HandlerLoad      = "load"
	HandlerSave      = "save"
	HandlerReplay    = "replay"
	HandlerEndings   = "endings"
	HandlerQuit      = "quit"
	HandlerHelp      = "help"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage shows the argument form, e.g. "skill <id>".
	Usage string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command (battle, campaign, system).
	Category string
	// Handler maps to the console action.
	Handler string
}

// BuiltinCommands returns all built-in commands for the game.
func BuiltinCommands() []Command {
	return []Command{
		// Battle commands
		{Name: "skill", Aliases: []string{"use", "u"}, Usage: "skill <id>", Help: "Use a memory skill (1 AP)", Category: CategoryBattle, Handler: HandlerSkill},
		{Name: "resonate", Aliases: []string{"r"}, Usage: "resonate <emotion>", Help: "Attack with an emotion resonance (1 AP)", Category: CategoryBattle, Handler: HandlerResonate},
		{Name: "item", Aliases: []string{"i"}, Usage: "item <id>", Help: "Use an item (1 AP)", Category: CategoryBattle, Handler: HandlerItem},
		{Name: "abandon", Aliases: []string{"flee"}, Help: "Abandon the current battle", Category: CategoryBattle, Handler: HandlerAbandon},

		// Campaign commands
		{Name: "status", Aliases: []string{"st"}, Help: "Show your stats and emotions", Category: CategoryCampaign, Handler: HandlerStatus},
		{Name: "skills", Aliases: []string{"sk"}, Help: "List your memory skills", Category: CategoryCampaign, Handler: HandlerSkills},
		{Name: "inventory", Aliases: []string{"inv"}, Help: "List your items", Category: CategoryCampaign, Handler: HandlerInventory},
		{Name: "fight", Aliases: []string{"next", "f"}, Help: "Enter the next nightmare", Category: CategoryCampaign, Handler: HandlerFight},
		{Name: "new", Aliases: nil, Help: "Start a new game, overwriting the save slot", Category: CategoryCampaign, Handler: HandlerNew},
		{Name: "load", Aliases: []string{"continue"}, Help: "Load the saved game", Category: CategoryCampaign, Handler: HandlerLoad},
		{Name: "save", Aliases: nil, Help: "Save your progress", Category: CategoryCampaign, Handler: HandlerSave},
		{Name: "replay", Aliases: nil, Help: "Start over, keeping the endings you have seen", Category: CategoryCampaign, Handler: HandlerReplay},
		{Name: "endings", Aliases: nil, Help: "List the endings you have seen", Category: CategoryCampaign, Handler: HandlerEndings},

		// System commands
		{Name: "quit", Aliases: []string{"exit", "q"}, Help: "Leave the dream", Category: CategorySystem, Handler: HandlerQuit},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}

// NeedsBattle reports whether the handler acts on an open battle.
func NeedsBattle(handler string) bool {
	switch handler {
	case HandlerSkill, HandlerResonate, HandlerItem, HandlerAbandon:
		return true
	default:
		return false
	}
}
