package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once and injected
// into each adapter at construction; nothing reads the environment ambiently.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Mailbox MailboxConfig `mapstructure:"mailbox"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WebhookConfig holds the inbound-parse HTTP server settings.
type WebhookConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MailboxConfig holds IMAP polling credentials and cadence.
type MailboxConfig struct {
	Server       string        `mapstructure:"server"` // host:port, implicit TLS
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	Folder       string        `mapstructure:"folder"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// OCRConfig holds tesseract invocation settings.
type OCRConfig struct {
	Tesseract   string `mapstructure:"tesseract"` // binary name or absolute path
	Language    string `mapstructure:"language"`
	TessdataDir string `mapstructure:"tessdata_dir"`
	TempDir     string `mapstructure:"temp_dir"` // where attachment bytes are staged
}

// LLMConfig holds extraction provider settings.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LedgerConfig selects and configures the append-only store.
type LedgerConfig struct {
	Backend string `mapstructure:"backend"` // xlsx | csv | sqlite | postgres
	Path    string `mapstructure:"path"`    // file path for xlsx/csv/sqlite
	DSN     string `mapstructure:"dsn"`     // postgres connection string
	Sheet   string `mapstructure:"sheet"`   // worksheet name for xlsx

	// DedupeBySourceID enables the lookup-before-append check on backends
	// that support it. Off by default: the documented behavior is
	// at-least-once, and reprocessing a message may append a duplicate row.
	DedupeBySourceID bool `mapstructure:"dedupe_by_source_id"`
}

// Load reads configuration from environment variables with the MAILLEDGER_
// prefix (e.g. MAILLEDGER_LLM_API_KEY).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MAILLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("webhook.addr", ":8080")
	v.SetDefault("webhook.read_timeout", "15s")
	v.SetDefault("webhook.write_timeout", "30s")

	v.SetDefault("mailbox.server", "imap.gmail.com:993")
	v.SetDefault("mailbox.username", "")
	v.SetDefault("mailbox.password", "")
	v.SetDefault("mailbox.folder", "INBOX")
	v.SetDefault("mailbox.poll_interval", "60s")

	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.temp_dir", "")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", "45s")

	v.SetDefault("ledger.backend", "xlsx")
	v.SetDefault("ledger.path", "expenses.xlsx")
	v.SetDefault("ledger.dsn", "")
	v.SetDefault("ledger.sheet", "Expenses")
	v.SetDefault("ledger.dedupe_by_source_id", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "MAILLEDGER_LLM_API_KEY is required", ErrInvalidInput)
	}
	switch c.Ledger.Backend {
	case "xlsx", "csv", "sqlite":
		if c.Ledger.Path == "" {
			return NewAppError("CONFIG_ERROR", "MAILLEDGER_LEDGER_PATH is required for file backends", ErrInvalidInput)
		}
	case "postgres":
		if c.Ledger.DSN == "" {
			return NewAppError("CONFIG_ERROR", "MAILLEDGER_LEDGER_DSN is required for the postgres backend", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown ledger backend %q", c.Ledger.Backend), ErrInvalidInput)
	}
	return nil
}

// ValidateMailbox additionally checks polling credentials; only the IMAP
// daemon needs these.
func (c *Config) ValidateMailbox() error {
	if c.Mailbox.Username == "" || c.Mailbox.Password == "" {
		return NewAppError("CONFIG_ERROR", "mailbox username and password are required", ErrInvalidInput)
	}
	if c.Mailbox.PollInterval <= 0 {
		return NewAppError("CONFIG_ERROR", "mailbox poll interval must be positive", ErrInvalidInput)
	}
	return nil
}
