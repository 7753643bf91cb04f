package command

import (
	"context"
	"time"
)

// Message is the inbound chat message as seen by dispatch. Permission sets
// are only meaningful when GuildID is set.
type Message struct {
	ID                string
	ChannelID         string
	GuildID           string
	AuthorID          string
	AuthorName        string
	AuthorIsBot       bool
	Webhook           bool
	Content           string
	AuthorPermissions int64
	BotPermissions    int64
}

// InGuild reports whether the message was posted in a guild channel.
func (m *Message) InGuild() bool { return m.GuildID != "" }

// Field is a name/value block of a reply.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Reply is a transport-neutral response. The gateway decides how to render it.
type Reply struct {
	Title  string
	Text   string
	Fields []Field
	Error  bool
}

// Replier sends replies to the message being handled.
type Replier interface {
	Reply(ctx context.Context, r Reply) error
}

// Usage is one successful command invocation.
type Usage struct {
	Command   string
	Args      string
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	At        time.Time
}

// Settings is the persisted bot configuration handlers may read and change.
type Settings interface {
	DefaultPrefix() string
	GetPrefix(guildID string) string
	SetPrefix(guildID, prefix string) error
	DisabledCommands() []string
	DisableCommand(name string) error
	EnableCommand(name string) error
	Owners() []string
	AddOwner(userID string) error
	RemoveOwner(userID string) error
	IsOwner(userID string) bool
	IsDeveloper(userID string) bool
	RecordCommandUsage(u Usage) error
}

// Stats are the process-wide counters.
type Stats struct {
	StartedAt        time.Time
	MessagesReceived uint64
	CommandsUsed     uint64
	LastCommandAt    time.Time
}

// Client is the bot as seen by a handler.
type Client interface {
	Commands() *Registry
	Settings() Settings
	Stats() Stats
	Latency() time.Duration
}

// Context is the per-dispatch payload passed to handlers in cmd.Invocation.Data.
// A Context is never shared between dispatches.
type Context struct {
	Message    *Message
	Descriptor *Descriptor
	// Invoked is the token the user typed, which may be an alias.
	Invoked string
	Prefix  string
	Replier Replier
	Client  Client
}

// Reply sends r through the context's replier.
func (c *Context) Reply(ctx context.Context, r Reply) error {
	return c.Replier.Reply(ctx, r)
}

// ReplyText sends a plain text reply.
func (c *Context) ReplyText(ctx context.Context, text string) error {
	return c.Replier.Reply(ctx, Reply{Text: text})
}
