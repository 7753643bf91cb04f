package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/policy"
)

// Outcome is how a dispatch ended.
type Outcome int

const (
	// Ignored messages come from bots or webhooks.
	Ignored Outcome = iota
	// NotCommand messages match neither the prefix nor the bot mention.
	NotCommand
	// QuickHelp is a bare bot mention answered with the prefix.
	QuickHelp
	// Unknown messages carry the prefix but name no registered command.
	Unknown
	Denied
	Executed
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Ignored:
		return "ignored"
	case NotCommand:
		return "not_command"
	case QuickHelp:
		return "quick_help"
	case Unknown:
		return "unknown"
	case Denied:
		return "denied"
	case Executed:
		return "executed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result describes one dispatch.
type Result struct {
	ID       string
	Outcome  Outcome
	Command  string
	Args     []string
	Decision policy.Decision
	Err      error
}

// Dispatch handles one inbound message. It never panics and never returns
// an error; failures are reported to the user and logged.
func (c *Core) Dispatch(ctx context.Context, msg *command.Message) (res Result) {
	res.ID = uuid.NewString()
	if msg == nil || msg.AuthorIsBot || msg.Webhook {
		res.Outcome = Ignored
		return res
	}
	c.messages.Add(1)

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).
				Str("dispatch", res.ID).Msg("dispatch panicked")
			res.Outcome = Failed
			res.Err = errors.Newf("dispatch panic: %v", r)
		}
	}()

	prefix := c.settings.GetPrefix(msg.GuildID)
	body, mentioned := c.stripMention(msg.Content)
	switch {
	case mentioned && strings.TrimSpace(body) == "":
		res.Outcome = QuickHelp
		c.reply(ctx, msg, command.Reply{Text: quickHelp(prefix)})
		return res
	case mentioned:
	case prefix != "" && strings.HasPrefix(msg.Content, prefix):
		body = msg.Content[len(prefix):]
	default:
		res.Outcome = NotCommand
		return res
	}

	fields := strings.Fields(body)
	if len(fields) == 0 {
		res.Outcome = NotCommand
		return res
	}
	token, args := fields[0], fields[1:]
	res.Args = args

	d, ok := c.registry.Resolve(token)
	if !ok {
		res.Outcome = Unknown
		return res
	}
	res.Command = d.Name

	dec := c.policy.Evaluate(policy.Request{
		Descriptor: d,
		Message:    msg,
		Disabled:   slices.Contains(c.settings.DisabledCommands(), d.Name),
		Developer:  c.settings.IsDeveloper(msg.AuthorID),
		Owner:      c.settings.IsOwner(msg.AuthorID),
		Now:        c.opts.Now(),
	})
	res.Decision = dec

	logger := log.With().Str("dispatch", res.ID).Str("command", d.Name).
		Str("user", msg.AuthorID).Str("guild", msg.GuildID).Logger()

	if !dec.Allowed() {
		res.Outcome = Denied
		logger.Debug().Str("reason", dec.Reason.String()).Msg("command denied")
		c.reply(ctx, msg, command.Reply{Text: dec.Message(), Error: true})
		return res
	}

	cc := &command.Context{
		Message:    msg,
		Descriptor: d,
		Invoked:    strings.ToLower(token),
		Prefix:     prefix,
		Replier:    &messageReplier{gateway: c.gateway, msg: msg},
		Client:     c,
	}
	if err := c.invoker.Invoke(logger.WithContext(ctx), cc, args); err != nil {
		res.Outcome = Failed
		res.Decision = policy.Decision{Reason: policy.HandlerFailure, Command: d.Name}
		res.Err = err
		return res
	}
	res.Outcome = Executed
	logger.Debug().Msg("command dispatched")
	return res
}

// stripMention removes a leading <@id> or <@!id> of the bot.
func (c *Core) stripMention(content string) (string, bool) {
	if c.gateway == nil {
		return content, false
	}
	id := c.gateway.BotUserID()
	if id == "" {
		return content, false
	}
	for _, m := range []string{"<@" + id + ">", "<@!" + id + ">"} {
		if strings.HasPrefix(content, m) {
			return content[len(m):], true
		}
	}
	return content, false
}

func (c *Core) reply(ctx context.Context, msg *command.Message, r command.Reply) {
	if c.gateway == nil {
		return
	}
	if err := c.gateway.Reply(ctx, msg, r); err != nil {
		log.Warn().Err(err).Str("channel", msg.ChannelID).Msg("failed to send reply")
	}
}

func quickHelp(prefix string) string {
	return fmt.Sprintf("My prefix here is `%s`. Use `%shelp` to see what I can do.", prefix, prefix)
}

// messageReplier binds the gateway to the message being handled.
type messageReplier struct {
	gateway Gateway
	msg     *command.Message
}

func (r *messageReplier) Reply(ctx context.Context, reply command.Reply) error {
	if r.gateway == nil {
		return nil
	}
	return r.gateway.Reply(ctx, r.msg, reply)
}
