package command

import (
	"strings"
	"time"

	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

// DefaultCategory is used for descriptors that sit at the root of the
// commands directory and declare no category.
const DefaultCategory = "Misc"

// Flags are the boolean access switches of a descriptor.
type Flags struct {
	DeveloperOnly bool
	OwnerOnly     bool
	GuildOnly     bool
	DMOnly        bool
	Disabled      bool
}

// Descriptor is one registered text command. Descriptors are immutable once
// registered; a change produces a new descriptor that replaces the old one.
type Descriptor struct {
	Name            string
	Aliases         []string
	Category        string
	Description     string
	Usage           string
	Examples        []string
	Cooldown        time.Duration
	Flags           Flags
	UserPermissions []string
	BotPermissions  []string

	// HandlerKey names the compiled behavior in the handler catalog.
	HandlerKey string
	Handler    cmd.Command
	// Reply is static text for data-only commands.
	Reply string

	// Origin is the descriptor file the command was loaded from.
	Origin string
}

// Unreachable reports whether the flags exclude every origin.
func (d *Descriptor) Unreachable() bool {
	return d.Flags.GuildOnly && d.Flags.DMOnly
}

// Key returns the case-folded name.
func (d *Descriptor) Key() string {
	return normalizeToken(d.Name)
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
