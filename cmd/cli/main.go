// Command cli inspects command descriptors and edits the bot's document store
// while the bot is offline.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
	"github.com/walidoudou/TemplatPrefix-discord/internal/config"
	"github.com/walidoudou/TemplatPrefix-discord/internal/docs"
	"github.com/walidoudou/TemplatPrefix-discord/internal/handlers"
	"github.com/walidoudou/TemplatPrefix-discord/internal/storage"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/util"
)

const usageText = `Usage: cli <command> [args]

Commands:
  check [dir]              validate every descriptor file in dir (default COMMANDS_DIR)
  docs [dir] [out]         write a markdown command reference (default COMMANDS.md)
  prefix <guild> [prefix]  show or set a guild prefix
  disable <command>        disable a command for the whole bot
  enable <command>         re-enable a command
  owners [add|del <user>]  list or edit bot owners
  usage                    show how often each command ran
  history <guild>          show the last commands run in a guild
`

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

type cliConfig struct {
	StoragePath   string   `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	CommandsDir   string   `env:"COMMANDS_DIR" envDefault:"commands"`
	DefaultPrefix string   `env:"DEFAULT_PREFIX" envDefault:"+"`
	DeveloperIDs  []string `env:"DEVELOPER_IDS" envSeparator:","`
	OwnerIDs      []string `env:"OWNER_IDS" envSeparator:","`
	DocsTemplate  string   `env:"DOCS_TEMPLATE"`
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(err.Error()))
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}

	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(stderr, errStyle.Render("config: "+err.Error()))
		return 1
	}

	verb, rest := strings.ToLower(args[0]), args[1:]
	if verb == "check" {
		dir := cfg.CommandsDir
		if len(rest) > 0 {
			dir = rest[0]
		}
		return check(dir, stdout)
	}
	if verb == "docs" {
		dir, out := cfg.CommandsDir, "COMMANDS.md"
		if len(rest) > 0 {
			dir = rest[0]
		}
		if len(rest) > 1 {
			out = rest[1]
		}
		return writeDocs(dir, out, cfg.DocsTemplate, cfg.DefaultPrefix, stdout, stderr)
	}
	if verb == "help" || verb == "-h" || verb == "--help" {
		fmt.Fprint(stdout, usageText)
		return 0
	}

	store, err := storage.New(cfg.StoragePath, storage.Options{
		DefaultPrefix: cfg.DefaultPrefix,
		Developers:    cfg.DeveloperIDs,
		Owners:        cfg.OwnerIDs,
	})
	if err != nil {
		fmt.Fprintln(stderr, errStyle.Render("storage: "+err.Error()))
		return 1
	}
	defer store.Close()

	if err := edit(store, verb, rest, stdout); err != nil {
		fmt.Fprintln(stderr, errStyle.Render(err.Error()))
		return 1
	}
	return 0
}

func edit(store *storage.Storage, verb string, args []string, out io.Writer) error {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch verb {
	case "prefix":
		guild := arg(0)
		if guild == "" {
			return fmt.Errorf("usage: prefix <guild> [prefix]")
		}
		if arg(1) == "" {
			fmt.Fprintf(out, "%s: %s\n", guild, store.GetPrefix(guild))
			return nil
		}
		if err := store.SetPrefix(guild, arg(1)); err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("prefix of %s set to %s", guild, store.GetPrefix(guild))))

	case "disable", "enable":
		name := strings.ToLower(arg(0))
		if name == "" {
			return fmt.Errorf("usage: %s <command>", verb)
		}
		if store.IsCommandDisabled(name) == (verb == "disable") {
			fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("%s is already %sd", name, verb)))
			return nil
		}
		var err error
		if verb == "disable" {
			err = store.DisableCommand(name)
		} else {
			err = store.EnableCommand(name)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%s %sd", name, verb)))

	case "owners":
		switch arg(0) {
		case "":
			fmt.Fprintln(out, titleStyle.Render("Owners"))
			for _, id := range store.Owners() {
				fmt.Fprintln(out, "  "+id)
			}
			fmt.Fprintln(out, titleStyle.Render("Developers"))
			for _, id := range store.Developers() {
				fmt.Fprintln(out, "  "+id)
			}
		case "add":
			if err := store.AddOwner(arg(1)); err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render(arg(1)+" added"))
		case "del", "remove":
			if err := store.RemoveOwner(arg(1)); err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render(arg(1)+" removed"))
		default:
			return fmt.Errorf("usage: owners [add|del <user>]")
		}

	case "usage":
		total, used := store.CommandUsage()
		names := make([]string, 0, len(used))
		for name := range used {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if used[names[i]] != used[names[j]] {
				return used[names[i]] > used[names[j]]
			}
			return names[i] < names[j]
		})
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d commands run", total)))
		for _, name := range names {
			fmt.Fprintf(out, "  %-16s %d\n", name, used[name])
		}
		return nil

	case "history":
		guild := arg(0)
		if guild == "" {
			return fmt.Errorf("usage: history <guild>")
		}
		records, err := store.FetchCommandHistory(guild)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(out, warnStyle.Render("no history for "+guild))
			return nil
		}
		fmt.Fprintln(out, titleStyle.Render("History of "+guild))
		for _, r := range records {
			line := fmt.Sprintf("  %s  %s  %s", util.FormatDateTpl(r.Datetime, "YYYY-MM-DD hh:mm"), r.Username, r.Command)
			if r.Param != "" {
				line += " " + r.Param
			}
			fmt.Fprintln(out, line)
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q\n\n%s", verb, usageText)
	}
	return store.SaveToFile()
}

// check loads dir into a scratch registry the way the bot does and reports
// every failure.
func check(dir string, out io.Writer) int {
	if _, err := os.Stat(dir); err != nil {
		fmt.Fprintln(out, errStyle.Render(err.Error()))
		return 1
	}

	registry, loaded, errs := loadDir(dir)
	if registry == nil {
		fmt.Fprintln(out, errStyle.Render(errs[0].Error()))
		return 1
	}

	for _, category := range registry.Categories() {
		fmt.Fprintln(out, titleStyle.Render(category))
		for _, d := range registry.ByCategory(category) {
			line := "  " + d.Name
			if len(d.Aliases) > 0 {
				line += " (" + strings.Join(d.Aliases, ", ") + ")"
			}
			fmt.Fprintln(out, line)
			if d.Unreachable() {
				fmt.Fprintln(out, warnStyle.Render("    warning: guild_only and dm_only, never runs"))
			}
		}
	}
	for _, err := range errs {
		fmt.Fprintln(out, errStyle.Render("✗ "+err.Error()))
	}

	summary := fmt.Sprintf("%d commands loaded, %d errors", loaded, len(errs))
	if len(errs) > 0 {
		fmt.Fprintln(out, errStyle.Render(summary))
		return 1
	}
	fmt.Fprintln(out, okStyle.Render("✓ "+summary))
	return 0
}

func loadDir(dir string) (*command.Registry, int, []error) {
	catalog := cmd.NewRegistry()
	if err := handlers.Register(catalog); err != nil {
		return nil, 0, []error{err}
	}
	registry := command.NewRegistry()
	loaded, errs := command.NewLoader(registry, catalog, dir).LoadAll(context.Background(), dir)
	return registry, loaded, errs
}

func writeDocs(dir, out, tmpl, prefix string, stdout, stderr io.Writer) int {
	if _, err := os.Stat(dir); err != nil {
		fmt.Fprintln(stderr, errStyle.Render(err.Error()))
		return 1
	}
	registry, loaded, errs := loadDir(dir)
	for _, err := range errs {
		fmt.Fprintln(stderr, warnStyle.Render("skipped: "+err.Error()))
	}
	if registry == nil {
		return 1
	}
	if err := docs.WriteFile(out, tmpl, registry, prefix); err != nil {
		fmt.Fprintln(stderr, errStyle.Render(err.Error()))
		return 1
	}
	fmt.Fprintln(stdout, okStyle.Render(fmt.Sprintf("✓ %d commands written to %s", loaded, out)))
	return 0
}
