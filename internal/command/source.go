package command

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/walidoudou/TemplatPrefix-discord/internal/perm"
	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

var sourceExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// IsDescriptorFile reports whether path names a descriptor file. Hidden
// files and editor leftovers are not descriptors.
func IsDescriptorFile(path string) bool {
	base := filepath.Base(path)
	if base == "" || strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return sourceExtensions[strings.ToLower(filepath.Ext(base))]
}

// descriptorFile is the on-disk shape. JSON files decode through the same
// YAML decoder.
type descriptorFile struct {
	Name            string   `yaml:"name"`
	Aliases         []string `yaml:"aliases"`
	Category        string   `yaml:"category"`
	Description     string   `yaml:"description"`
	Usage           string   `yaml:"usage"`
	Examples        []string `yaml:"examples"`
	Cooldown        *float64 `yaml:"cooldown"`
	Handler         string   `yaml:"handler"`
	Reply           string   `yaml:"reply"`
	DeveloperOnly   bool     `yaml:"developer_only"`
	OwnerOnly       bool     `yaml:"owner_only"`
	GuildOnly       bool     `yaml:"guild_only"`
	DMOnly          bool     `yaml:"dm_only"`
	Disabled        bool     `yaml:"disabled"`
	UserPermissions []string `yaml:"user_permissions"`
	BotPermissions  []string `yaml:"bot_permissions"`
}

// Parser turns descriptor files into descriptors, resolving handler keys
// against a catalog of compiled behaviors.
type Parser struct {
	Root     string
	Handlers *cmd.Registry
}

// ParseFile reads and validates the descriptor at path.
func (p *Parser) ParseFile(path string) (*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read descriptor")
	}
	d, err := p.Parse(raw)
	if err != nil {
		return nil, err
	}
	if d.Category == "" {
		d.Category = CategoryFor(p.Root, path)
	}
	d.Origin = path
	return d, nil
}

// Parse validates raw descriptor content.
func (p *Parser) Parse(raw []byte) (*Descriptor, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, invalid("empty file")
	}

	var f descriptorFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrapf(ErrInvalidDescriptor, "decode: %v", err)
	}

	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, invalid("missing name")
	}
	if strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return nil, invalid("name %q contains whitespace", name)
	}

	key := strings.TrimSpace(f.Handler)
	if key == "" {
		return nil, invalid("%s: missing handler", name)
	}
	if p.Handlers == nil {
		return nil, invalid("%s: no handler catalog", name)
	}
	handler, ok := p.Handlers.Get(key)
	if !ok {
		return nil, invalid("%s: unknown handler %q", name, key)
	}

	var cooldown time.Duration
	if f.Cooldown != nil {
		if *f.Cooldown < 0 {
			return nil, invalid("%s: negative cooldown", name)
		}
		cooldown = time.Duration(*f.Cooldown * float64(time.Second))
	}

	for _, a := range f.Aliases {
		if strings.TrimSpace(a) == "" || strings.IndexFunc(strings.TrimSpace(a), unicode.IsSpace) >= 0 {
			return nil, invalid("%s: bad alias %q", name, a)
		}
	}

	userPerms, err := perm.Canonicalize(f.UserPermissions)
	if err != nil {
		return nil, invalid("%s: user_permissions: %v", name, err)
	}
	botPerms, err := perm.Canonicalize(f.BotPermissions)
	if err != nil {
		return nil, invalid("%s: bot_permissions: %v", name, err)
	}

	return &Descriptor{
		Name:        strings.ToLower(name),
		Aliases:     f.Aliases,
		Category:    strings.TrimSpace(f.Category),
		Description: f.Description,
		Usage:       f.Usage,
		Examples:    f.Examples,
		Cooldown:    cooldown,
		Flags: Flags{
			DeveloperOnly: f.DeveloperOnly,
			OwnerOnly:     f.OwnerOnly,
			GuildOnly:     f.GuildOnly,
			DMOnly:        f.DMOnly,
			Disabled:      f.Disabled,
		},
		UserPermissions: userPerms,
		BotPermissions:  botPerms,
		HandlerKey:      strings.ToLower(key),
		Handler:         handler,
		Reply:           f.Reply,
	}, nil
}

// CategoryFor derives a category from the directory that contains path.
// Files directly under root, or outside it, get DefaultCategory.
func CategoryFor(root, path string) string {
	dir := filepath.Dir(path)
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return DefaultCategory
	}
	name := filepath.Base(dir)
	return strings.ToUpper(name[:1]) + name[1:]
}
