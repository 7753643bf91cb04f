// Package cmd provides a transport-agnostic command core: a command is something
// with a name, description, and Run(ctx, invocation). How it is bound to a
// trigger (a descriptor file, a CLI verb) is defined by the callers that wrap it.
package cmd

import "context"

// Invocation carries the minimal input any command runner can pass: arguments
// and an opaque payload. The bot sets Data to a *command.Context.
type Invocation struct {
	Args []string
	Data interface{}
}

// Arg returns the i-th argument or an empty string.
func (inv *Invocation) Arg(i int) string {
	if inv == nil || i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// Command is the universal contract: identity plus execution. Permissions,
// cooldowns and aliases live in descriptors, not here.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

type funcCommand struct {
	name        string
	description string
	run         func(ctx context.Context, inv *Invocation) error
}

func (f *funcCommand) Name() string        { return f.name }
func (f *funcCommand) Description() string { return f.description }
func (f *funcCommand) Run(ctx context.Context, inv *Invocation) error {
	return f.run(ctx, inv)
}

// Func builds a Command from a plain function.
func Func(name, description string, run func(ctx context.Context, inv *Invocation) error) Command {
	return &funcCommand{name: name, description: description, run: run}
}
