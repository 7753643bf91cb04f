// /internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken   string   `env:"DISCORD_TOKEN,required,notEmpty"`
	StoragePath    string   `env:"STORAGE_PATH" envDefault:"data/datastore.json"`
	CommandsDir    string   `env:"COMMANDS_DIR" envDefault:"commands"`
	DefaultPrefix  string   `env:"DEFAULT_PREFIX" envDefault:"+"`
	DeveloperIDs   []string `env:"DEVELOPER_IDS" envSeparator:","`
	OwnerIDs       []string `env:"OWNER_IDS" envSeparator:","`
	GuildBlacklist []string `env:"GUILD_BLACKLIST" envSeparator:","`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE" envDefault:"logs/bot.log"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"14"`

	WatchDebounce         time.Duration `env:"WATCH_DEBOUNCE" envDefault:"250ms"`
	CooldownSweepInterval time.Duration `env:"COOLDOWN_SWEEP_INTERVAL" envDefault:"1m"`
	HandlerTimeout        time.Duration `env:"HANDLER_TIMEOUT" envDefault:"30s"`

	EmbedColor  int    `env:"EMBED_COLOR" envDefault:"3447003"`
	EmbedFooter string `env:"EMBED_FOOTER" envDefault:"Powered by TemplatPrefix"`
	Presence    string `env:"PRESENCE" envDefault:"+help"`
}

// LoadDotEnv loads .env into the process environment. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// New parses the environment into a Config.
func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if c.DefaultPrefix == "" || len([]rune(c.DefaultPrefix)) > 5 {
		return fmt.Errorf("DEFAULT_PREFIX must be 1 to 5 characters")
	}
	if c.CommandsDir == "" {
		return fmt.Errorf("COMMANDS_DIR must not be empty")
	}
	if c.HandlerTimeout <= 0 {
		return fmt.Errorf("HANDLER_TIMEOUT must be positive")
	}
	if c.EmbedColor < 0 || c.EmbedColor > 0xFFFFFF {
		return fmt.Errorf("EMBED_COLOR must be a 24-bit color")
	}
	return nil
}

// IsDeveloper reports whether userID is listed in DEVELOPER_IDS.
func IsDeveloper(cfg *Config, userID string) bool {
	if cfg == nil {
		return false
	}
	for _, id := range cfg.DeveloperIDs {
		if id == userID {
			return true
		}
	}
	return false
}
