package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"automatization-bot/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBankID names the bank built from the quiz section of the YAML file.
const DefaultBankID = "default"

type Config struct {
	Bot struct {
		Token       string `yaml:"token"`
		AdminChatID string `yaml:"admin_chat_id"`
		Debug       bool   `yaml:"debug"`
		PollTimeout int    `yaml:"poll_timeout"`
		SkipPending *bool  `yaml:"skip_pending"`
	} `yaml:"bot"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		// Source is "config" (default) or "postgres".
		Source       string                `yaml:"source"`
		BankID       string                `yaml:"bank_id"`
		StrictRanges bool                  `yaml:"strict_ranges"`
		LockTimeout  string                `yaml:"lock_timeout"`
		Questions    []string              `yaml:"questions"`
		Answers      []domain.AnswerOption `yaml:"answers"`
		Results      []domain.ScoreRange   `yaml:"results"`
		ContactText  string                `yaml:"contact_text"`
	} `yaml:"quiz"`
	Texts domain.Texts `yaml:"texts"`
}

// Load reads YAML config from path, then applies .env and environment overrides.
func Load(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&cfg.Bot.Token, "BOT_TOKEN")
	override(&cfg.Bot.AdminChatID, "ADMIN_CHAT_ID")
	override(&cfg.Log.Level, "LOG_LEVEL")
	override(&cfg.Log.Format, "LOG_FORMAT")
	override(&cfg.Server.Port, "PORT")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	if v := os.Getenv("BOT_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BOT_DEBUG must be a boolean, got %q", v)
		}
		cfg.Bot.Debug = debug
	}
	return nil
}

type setting struct {
	name string
	set  bool
}

// Validate reports the first missing required setting by its YAML path.
func (c Config) Validate() error {
	required := []setting{
		{"bot.token (BOT_TOKEN)", c.Bot.Token != ""},
		{"bot.admin_chat_id (ADMIN_CHAT_ID)", c.Bot.AdminChatID != ""},
	}
	switch c.QuizSource() {
	case "config":
		required = append(required,
			setting{"quiz.questions", len(c.Quiz.Questions) > 0},
			setting{"quiz.answers", len(c.Quiz.Answers) > 0},
			setting{"quiz.results", len(c.Quiz.Results) > 0},
		)
	case "postgres":
		required = append(required, setting{"postgres.url (POSTGRES_URL)", c.Postgres.URL != ""})
	default:
		return fmt.Errorf("quiz.source must be config or postgres, got %q", c.Quiz.Source)
	}
	required = append(required, setting{"quiz.contact_text", c.Quiz.ContactText != ""})

	for _, r := range required {
		if !r.set {
			return fmt.Errorf("%w: %s", domain.ErrMissingSetting, r.name)
		}
	}
	if !strings.HasPrefix(c.Bot.AdminChatID, "@") {
		if _, err := strconv.ParseInt(c.Bot.AdminChatID, 10, 64); err != nil {
			return fmt.Errorf("bot.admin_chat_id must be a numeric chat id or @channel, got %q", c.Bot.AdminChatID)
		}
	}
	return c.BotTexts().Validate()
}

// QuizSource returns the configured bank source, defaulting to "config".
func (c Config) QuizSource() string {
	if c.Quiz.Source == "" {
		return "config"
	}
	return c.Quiz.Source
}

// QuizBankID returns the bank identifier to load.
func (c Config) QuizBankID() string {
	if c.Quiz.BankID == "" {
		return DefaultBankID
	}
	return c.Quiz.BankID
}

// Bank builds the question bank from the quiz section.
func (c Config) Bank() domain.QuestionBank {
	return domain.QuestionBank{
		ID:        c.QuizBankID(),
		Questions: c.Quiz.Questions,
		Answers:   c.Quiz.Answers,
		Results:   c.Quiz.Results,
	}
}

// BotTexts returns the configured copy with defaults filled in.
func (c Config) BotTexts() domain.Texts {
	texts := c.Texts.Merge(domain.DefaultTexts())
	if c.Quiz.ContactText != "" {
		texts.Contact = c.Quiz.ContactText
	}
	return texts
}

// VerifyBank validates a loaded bank and lists reachable scores without a result.
// Gaps are an error only when strict is set.
func VerifyBank(bank domain.QuestionBank, strict bool) ([]int, error) {
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	gaps := bank.Uncovered()
	if strict && len(gaps) > 0 {
		return gaps, fmt.Errorf("%w: scores %v match no result range", domain.ErrInvalidBank, gaps)
	}
	return gaps, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// SkipPendingUpdates reports whether updates queued while the bot was down are dropped.
func (c Config) SkipPendingUpdates() bool {
	if c.Bot.SkipPending == nil {
		return true
	}
	return *c.Bot.SkipPending
}

// LongPollTimeout returns the getUpdates timeout in seconds.
func (c Config) LongPollTimeout() int {
	if c.Bot.PollTimeout <= 0 {
		return 60
	}
	return c.Bot.PollTimeout
}
