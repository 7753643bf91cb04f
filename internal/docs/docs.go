// Package docs renders the loaded commands as a markdown reference.
package docs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/walidoudou/TemplatPrefix-discord/internal/command"
)

// DefaultTemplate is used when no template file is given.
const DefaultTemplate = `# Commands

Default prefix: ` + "`{{ .Prefix }}`" + `. Every command also answers to a mention of the bot.

{{ .CommandSections }}`

// Sections renders one markdown section per category. Developer-only
// commands are left out.
func Sections(registry *command.Registry, prefix string) string {
	var buf bytes.Buffer
	for _, category := range registry.Categories() {
		var lines []string
		for _, d := range registry.ByCategory(category) {
			if d.Flags.DeveloperOnly {
				continue
			}
			lines = append(lines, line(d, prefix))
		}
		if len(lines) == 0 {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "### %s\n\n", category)
		for _, l := range lines {
			buf.WriteString(l + "\n")
		}
	}
	return buf.String()
}

func line(d *command.Descriptor, prefix string) string {
	description := d.Description
	if description == "" {
		description = "No description."
	}
	s := fmt.Sprintf("- **%s%s**", prefix, d.Name)
	if d.Usage != "" {
		s += " `" + d.Usage + "`"
	}
	s += " - " + description
	if len(d.Aliases) > 0 {
		s += " (aliases: " + strings.Join(d.Aliases, ", ") + ")"
	}
	return s
}

// Render executes tmpl with the rendered sections.
func Render(w io.Writer, tmpl string, registry *command.Registry, prefix string) error {
	t, err := template.New("commands").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	data := struct {
		Prefix          string
		CommandSections string
	}{
		Prefix:          prefix,
		CommandSections: Sections(registry, prefix),
	}
	return t.Execute(w, data)
}

// WriteFile renders the template at tmplPath (DefaultTemplate when empty) into outPath.
func WriteFile(outPath, tmplPath string, registry *command.Registry, prefix string) error {
	tmpl := DefaultTemplate
	if tmplPath != "" {
		raw, err := os.ReadFile(tmplPath)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		tmpl = string(raw)
	}

	var buf bytes.Buffer
	if err := Render(&buf, tmpl, registry, prefix); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	return nil
}
