// Package policy decides whether a resolved command may run for a message.
package policy

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/cooldown"
	"github.com/walidoudou/TemplatPrefix-discord/internal/perm"
)

// Reason names the outcome of a policy evaluation or invocation.
type Reason int

const (
	Allowed Reason = iota
	CommandDisabled
	DeveloperOnly
	OwnerOnly
	GuildOnlyCommand
	DMOnlyCommand
	MissingUserPermissions
	MissingBotPermissions
	OnCooldown
	HandlerFailure
)

var reasonNames = map[Reason]string{
	Allowed:                "allowed",
	CommandDisabled:        "command_disabled",
	DeveloperOnly:          "developer_only",
	OwnerOnly:              "owner_only",
	GuildOnlyCommand:       "guild_only",
	DMOnlyCommand:          "dm_only",
	MissingUserPermissions: "missing_user_permissions",
	MissingBotPermissions:  "missing_bot_permissions",
	OnCooldown:             "on_cooldown",
	HandlerFailure:         "handler_failure",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Decision is the result of evaluating a request.
type Decision struct {
	Reason    Reason
	Command   string
	Missing   []string
	Remaining time.Duration
}

// Allowed reports whether the command may run.
func (d Decision) Allowed() bool { return d.Reason == Allowed }

// Message is the user-facing explanation of a denial.
func (d Decision) Message() string {
	switch d.Reason {
	case Allowed:
		return ""
	case CommandDisabled:
		return "This command is currently disabled."
	case DeveloperOnly:
		return "This command is reserved for the bot developers."
	case OwnerOnly:
		return "This command is reserved for the bot owners."
	case GuildOnlyCommand:
		return "This command can only be used in a server."
	case DMOnlyCommand:
		return "This command can only be used in direct messages."
	case MissingUserPermissions:
		return fmt.Sprintf("You need the following permissions to use this command:\n`%s`",
			strings.Join(perm.DisplayNames(d.Missing), ", "))
	case MissingBotPermissions:
		return fmt.Sprintf("I need the following permissions in this channel to run this command:\n`%s`",
			strings.Join(perm.DisplayNames(d.Missing), ", "))
	case OnCooldown:
		return fmt.Sprintf("Please wait %s more second(s) before reusing the `%s` command.",
			formatSeconds(d.Remaining), d.Command)
	case HandlerFailure:
		return "An error occurred while executing this command."
	default:
		return "This command cannot be used right now."
	}
}

// formatSeconds renders d with one decimal, rounded up so a user never
// retries too early.
func formatSeconds(d time.Duration) string {
	tenths := math.Ceil(d.Seconds()*10) / 10
	return fmt.Sprintf("%.1f", tenths)
}

// Request is everything a policy evaluation reads.
type Request struct {
	Descriptor *command.Descriptor
	Message    *command.Message
	// Disabled is set when the store lists the command as disabled.
	Disabled  bool
	Developer bool
	Owner     bool
	Now       time.Time
}

// Engine applies the checks in a fixed order, stopping at the first denial.
type Engine struct {
	cooldowns *cooldown.Tracker
}

// NewEngine returns an engine that records cooldowns in tracker.
func NewEngine(tracker *cooldown.Tracker) *Engine {
	return &Engine{cooldowns: tracker}
}

// Evaluate runs the check chain. Only an allowed decision records a
// cooldown window.
func (e *Engine) Evaluate(req Request) Decision {
	d := req.Descriptor
	msg := req.Message
	deny := func(r Reason) Decision { return Decision{Reason: r, Command: d.Name} }

	if d.Flags.Disabled || req.Disabled {
		return deny(CommandDisabled)
	}
	if d.Flags.DeveloperOnly && !req.Developer {
		return deny(DeveloperOnly)
	}
	if d.Flags.OwnerOnly && !req.Owner {
		return deny(OwnerOnly)
	}
	if d.Flags.GuildOnly && !msg.InGuild() {
		return deny(GuildOnlyCommand)
	}
	if d.Flags.DMOnly && msg.InGuild() {
		return deny(DMOnlyCommand)
	}

	// direct messages carry no permission set
	if msg.InGuild() {
		if len(d.UserPermissions) > 0 && !req.Developer && !req.Owner {
			if missing := perm.Missing(msg.AuthorPermissions, d.UserPermissions); len(missing) > 0 {
				dec := deny(MissingUserPermissions)
				dec.Missing = missing
				return dec
			}
		}
		if missing := perm.Missing(msg.BotPermissions, d.BotPermissions); len(missing) > 0 {
			dec := deny(MissingBotPermissions)
			dec.Missing = missing
			return dec
		}
	}

	if e.cooldowns != nil {
		now := req.Now
		if now.IsZero() {
			now = time.Now()
		}
		if ok, left := e.cooldowns.Check(d.Name, msg.AuthorID, d.Cooldown, now); !ok {
			dec := deny(OnCooldown)
			dec.Remaining = left
			return dec
		}
	}

	return Decision{Reason: Allowed, Command: d.Name}
}
