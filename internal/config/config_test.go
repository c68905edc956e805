package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"automatization-bot/internal/domain"
)

const sampleYAML = `
bot:
  token: "file-token"
  admin_chat_id: "100500"
log:
  level: debug
quiz:
  questions:
    - "Q1"
    - "Q2"
    - "Q3"
  answers:
    - {token: "а", points: 1}
    - {token: "б", points: 2}
    - {token: "в", points: 3}
  results:
    - {low: 3, high: 5, description: "low"}
    - {low: 6, high: 9, description: "high"}
  contact_text: "write to @coach"
texts:
  start_button: "Go"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesQuizSection(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	bank := cfg.Bank()
	if bank.ID != DefaultBankID || len(bank.Questions) != 3 || len(bank.Answers) != 3 {
		t.Fatalf("unexpected bank %+v", bank)
	}
	if _, points, ok := bank.Points("Б"); !ok || points != 2 {
		t.Fatalf("expected Б worth 2, got %d ok=%v", points, ok)
	}

	texts := cfg.BotTexts()
	if texts.StartButton != "Go" {
		t.Fatalf("expected overridden start button, got %q", texts.StartButton)
	}
	if texts.Contact != "write to @coach" {
		t.Fatalf("expected contact from quiz section, got %q", texts.Contact)
	}
	if texts.ChooseAnswer != domain.DefaultTexts().ChooseAnswer {
		t.Fatalf("expected default copy for unset texts, got %q", texts.ChooseAnswer)
	}
	if !cfg.SkipPendingUpdates() || cfg.LongPollTimeout() != 60 {
		t.Fatalf("unexpected polling defaults skip=%v timeout=%d", cfg.SkipPendingUpdates(), cfg.LongPollTimeout())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("ADMIN_CHAT_ID", "@results")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bot.Token != "env-token" || cfg.Bot.AdminChatID != "@results" || cfg.Log.Level != "warn" {
		t.Fatalf("expected env overrides, got token=%q admin=%q level=%q", cfg.Bot.Token, cfg.Bot.AdminChatID, cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate channel admin: %v", err)
	}
}

func TestValidateNamesMissingSetting(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"token", func(c *Config) { c.Bot.Token = "" }, "bot.token"},
		{"admin", func(c *Config) { c.Bot.AdminChatID = "" }, "bot.admin_chat_id"},
		{"questions", func(c *Config) { c.Quiz.Questions = nil }, "quiz.questions"},
		{"answers", func(c *Config) { c.Quiz.Answers = nil }, "quiz.answers"},
		{"results", func(c *Config) { c.Quiz.Results = nil }, "quiz.results"},
		{"contact", func(c *Config) { c.Quiz.ContactText = "" }, "quiz.contact_text"},
		{"postgres", func(c *Config) { c.Quiz.Source = "postgres" }, "postgres.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleYAML))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(&cfg)
			err = cfg.Validate()
			if !errors.Is(err, domain.ErrMissingSetting) {
				t.Fatalf("expected missing setting, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestValidateRejectsBadAdminAndSource(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Bot.AdminChatID = "admin"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for non-numeric admin chat id")
	}

	cfg.Bot.AdminChatID = "1"
	cfg.Quiz.Source = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown source")
	}
}

func TestVerifyBankReportsGaps(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	bank := cfg.Bank()

	gaps, err := VerifyBank(bank, true)
	if err != nil || len(gaps) != 0 {
		t.Fatalf("expected full coverage, gaps=%v err=%v", gaps, err)
	}

	bank.Results = bank.Results[:1]
	gaps, err = VerifyBank(bank, false)
	if err != nil {
		t.Fatalf("lenient verify: %v", err)
	}
	if len(gaps) != 4 || gaps[0] != 6 || gaps[3] != 9 {
		t.Fatalf("expected gaps 6..9, got %v", gaps)
	}
	if _, err := VerifyBank(bank, true); !errors.Is(err, domain.ErrInvalidBank) {
		t.Fatalf("expected strict verify to fail, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", 0); got != 0 {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("garbage", 5); got != 5 {
		t.Fatalf("expected fallback on parse error, got %v", got)
	}
	if got := TTLDuration("90s", 0); got.Seconds() != 90 {
		t.Fatalf("expected 90s, got %v", got)
	}
}

func TestValidateRejectsBrokenTemplates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"score line without verb", func(c *Config) { c.Texts.ScoreLine = "Ваш результат" }, "texts.score_line"},
		{"score line wrong verb", func(c *Config) { c.Texts.ScoreLine = "Ваш результат: %s" }, "texts.score_line"},
		{"admin id with two verbs", func(c *Config) { c.Texts.AdminID = "ID %s %s" }, "texts.admin_id"},
		{"admin score lost", func(c *Config) { c.Texts.AdminScore = "Баллы" }, "texts.admin_score"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleYAML))
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tt.mutate(&cfg)
			err = cfg.Validate()
			if !errors.Is(err, domain.ErrInvalidTexts) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected invalid %s, got %v", tt.want, err)
			}
		})
	}

	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Texts.ScoreLine = "100%% готово: %d"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected escaped percent to be accepted, got %v", err)
	}
}

func TestLoadRejectsBadDebugFlag(t *testing.T) {
	t.Setenv("BOT_DEBUG", "sometimes")
	if _, err := Load(writeConfig(t, sampleYAML)); err == nil || !strings.Contains(err.Error(), "BOT_DEBUG") {
		t.Fatalf("expected BOT_DEBUG error, got %v", err)
	}

	t.Setenv("BOT_DEBUG", "true")
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil || !cfg.Bot.Debug {
		t.Fatalf("expected debug enabled, got %v err=%v", cfg.Bot.Debug, err)
	}
}
