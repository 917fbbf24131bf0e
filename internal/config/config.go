package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"nudge/internal/workpool"
)

const (
	defaultTimezone   = "Local"
	configPathEnv     = "NUDGE_CONFIG"
	apiURLEnv         = "NUDGE_API_URL"
	useFakeEnv        = "NUDGE_USE_FAKE"
	userIDEnv         = "NUDGE_USER_ID"
	storageDSNEnv     = "NUDGE_STORAGE_DSN"
	logLevelEnv       = "NUDGE_LOG_LEVEL"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	API           APIConfig          `yaml:"api"`
	Autosave      AutosaveConfig     `yaml:"autosave"`
	Sync          SyncConfig         `yaml:"sync"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Digest        DigestConfig       `yaml:"digest"`
	Fake          FakeConfig         `yaml:"fake"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Storage       StorageConfig      `yaml:"storage"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
	Server        ServerConfig       `yaml:"server"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File receives logs instead of stderr; the TUI needs the terminal.
	File string `yaml:"file"`
}

// APIConfig describes the items backend.
type APIConfig struct {
	BaseURL           string        `yaml:"baseUrl"`
	UseFake           bool          `yaml:"useFake"`
	UserID            string        `yaml:"userId"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
}

// AutosaveConfig tunes the debounce state machine.
type AutosaveConfig struct {
	Debounce   time.Duration `yaml:"debounce"`
	SavedDecay time.Duration `yaml:"savedDecay"`
}

// SyncConfig tunes list polling.
type SyncConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	PageSize     int           `yaml:"pageSize"`
}

// FetchConfig caps concurrent detail fetches. Values above workpool.DefaultLimit are lowered to it.
type FetchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// DigestConfig selects the digest strategies.
type DigestConfig struct {
	Summarizer string   `yaml:"summarizer"`
	Stopwords  []string `yaml:"stopwords"`
}

// FakeConfig drives the in-memory backend.
type FakeConfig struct {
	QueueDelay     time.Duration `yaml:"queueDelay"`
	ProcessDelay   time.Duration `yaml:"processDelay"`
	LiveExtraction bool          `yaml:"liveExtraction"`
	MinTextLen     int           `yaml:"minTextLen"`
	MaxTextLen     int           `yaml:"maxTextLen"`
}

// SchedulerConfig defines when the weekly digest is published.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
// The same zone defines the digest week.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.Local
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// StorageConfig points at the publish log database.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// ServerConfig is used by the fake REST server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration from NUDGE_CONFIG (if set) and applies
// environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit path; an empty path means defaults only.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(apiURLEnv); v != "" {
		c.API.BaseURL = v
	}

	if v := os.Getenv(useFakeEnv); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.API.UseFake = b
		} else {
			log.Printf("config: ignoring %s=%q: %v", useFakeEnv, v, err)
		}
	}

	if v := os.Getenv(userIDEnv); v != "" {
		c.API.UserID = v
	}

	if v := os.Getenv(storageDSNEnv); v != "" {
		c.Storage.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc = time.Local
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if override.API.BaseURL != "" {
		base.API.BaseURL = override.API.BaseURL
	}
	if override.API.UseFake {
		base.API.UseFake = true
	}
	if override.API.UserID != "" {
		base.API.UserID = override.API.UserID
	}
	if override.API.Timeout > 0 {
		base.API.Timeout = override.API.Timeout
	}
	if override.API.RequestsPerSecond > 0 {
		base.API.RequestsPerSecond = override.API.RequestsPerSecond
	}
	if override.API.Burst > 0 {
		base.API.Burst = override.API.Burst
	}

	if override.Autosave.Debounce > 0 {
		base.Autosave.Debounce = override.Autosave.Debounce
	}
	if override.Autosave.SavedDecay > 0 {
		base.Autosave.SavedDecay = override.Autosave.SavedDecay
	}

	if override.Sync.PollInterval > 0 {
		base.Sync.PollInterval = override.Sync.PollInterval
	}
	if override.Sync.PageSize > 0 {
		base.Sync.PageSize = override.Sync.PageSize
	}

	if override.Fetch.Concurrency > 0 {
		base.Fetch.Concurrency = min(override.Fetch.Concurrency, workpool.DefaultLimit)
	}

	if override.Digest.Summarizer != "" {
		base.Digest.Summarizer = override.Digest.Summarizer
	}
	if len(override.Digest.Stopwords) > 0 {
		base.Digest.Stopwords = override.Digest.Stopwords
	}

	if override.Fake.QueueDelay > 0 {
		base.Fake.QueueDelay = override.Fake.QueueDelay
	}
	if override.Fake.ProcessDelay > 0 {
		base.Fake.ProcessDelay = override.Fake.ProcessDelay
	}
	if override.Fake.LiveExtraction {
		base.Fake.LiveExtraction = true
	}
	if override.Fake.MinTextLen > 0 {
		base.Fake.MinTextLen = override.Fake.MinTextLen
	}
	if override.Fake.MaxTextLen > 0 {
		base.Fake.MaxTextLen = override.Fake.MaxTextLen
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		API: APIConfig{
			BaseURL:           "http://localhost:8000",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Autosave: AutosaveConfig{Debounce: 700 * time.Millisecond, SavedDecay: 2 * time.Second},
		Sync:     SyncConfig{PollInterval: 1500 * time.Millisecond, PageSize: 50},
		Fetch:    FetchConfig{Concurrency: workpool.DefaultLimit},
		Digest:   DigestConfig{Summarizer: "heuristic"},
		Fake: FakeConfig{
			QueueDelay:   800 * time.Millisecond,
			ProcessDelay: 1600 * time.Millisecond,
			MinTextLen:   600,
			MaxTextLen:   200_000,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 18 * * 6", Timezone: defaultTimezone, location: time.Local},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Storage: StorageConfig{Driver: "sqlite", DSN: "nudge.db"},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "You condense saved articles into short factual bullet points.",
		},
		Server: ServerConfig{Addr: ":8000"},
	}
}
