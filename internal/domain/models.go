package domain

import (
	"fmt"
	"strings"
	"time"
)

// Session is the in-progress quiz state of a single user.
type Session struct {
	UserID          string    `json:"userId"`
	ChatID          string    `json:"chatId"`
	DisplayName     string    `json:"displayName"`
	Handle          string    `json:"handle"`
	Answers         []string  `json:"answers"`
	CurrentQuestion int       `json:"currentQuestion"`
	Score           int       `json:"score"`
	StartedAt       time.Time `json:"startedAt"`
}

// Clone returns a deep copy so callers can mutate without aliasing the stored value.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Answers = append([]string(nil), s.Answers...)
	return &c
}

// AnswerOption is an accepted reply and the points it is worth.
type AnswerOption struct {
	Token  string `json:"token" yaml:"token"`
	Points int    `json:"points" yaml:"points"`
}

// ScoreRange maps a closed score interval to a result description.
type ScoreRange struct {
	Low         int    `json:"low" yaml:"low"`
	High        int    `json:"high" yaml:"high"`
	Description string `json:"description" yaml:"description"`
}

// Contains reports whether score lies in [Low, High].
func (r ScoreRange) Contains(score int) bool {
	return r.Low <= score && score <= r.High
}

// QuestionBank is the immutable quiz content.
type QuestionBank struct {
	ID        string         `json:"id"`
	Questions []string       `json:"questions"`
	Answers   []AnswerOption `json:"answers"`
	Results   []ScoreRange   `json:"results"`
}

// NormalizeToken lower-cases and trims an answer token.
func NormalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Points returns the score of a raw answer text, matched case-insensitively.
func (b QuestionBank) Points(text string) (string, int, bool) {
	token := NormalizeToken(text)
	if token == "" {
		return "", 0, false
	}
	for _, a := range b.Answers {
		if NormalizeToken(a.Token) == token {
			return token, a.Points, true
		}
	}
	return "", 0, false
}

// Tokens returns the accepted answer tokens in declaration order.
func (b QuestionBank) Tokens() []string {
	tokens := make([]string, 0, len(b.Answers))
	for _, a := range b.Answers {
		tokens = append(tokens, a.Token)
	}
	return tokens
}

// Classify returns the description of the first declared range containing score.
func (b QuestionBank) Classify(score int) (string, bool) {
	for _, r := range b.Results {
		if r.Contains(score) {
			return r.Description, true
		}
	}
	return "", false
}

// ScoreBounds returns the lowest and highest totals reachable by answering every question.
func (b QuestionBank) ScoreBounds() (int, int) {
	if len(b.Answers) == 0 {
		return 0, 0
	}
	lo, hi := b.Answers[0].Points, b.Answers[0].Points
	for _, a := range b.Answers[1:] {
		if a.Points < lo {
			lo = a.Points
		}
		if a.Points > hi {
			hi = a.Points
		}
	}
	n := len(b.Questions)
	return lo * n, hi * n
}

// Texts holds every user-facing string the bot sends.
type Texts struct {
	Greeting        string   `yaml:"greeting"`
	StartButton     string   `yaml:"start_button"`
	StartPhrases    []string `yaml:"start_phrases"`
	ChooseAnswer    string   `yaml:"choose_answer"`
	StartFirst      string   `yaml:"start_first"`
	Invite          string   `yaml:"invite"`
	ResultHeader    string   `yaml:"result_header"`
	ScoreLine       string   `yaml:"score_line"`
	CallToAction    string   `yaml:"call_to_action"`
	Contact         string   `yaml:"contact"`
	AdminHeader     string   `yaml:"admin_header"`
	AdminUser       string   `yaml:"admin_user"`
	AdminID         string   `yaml:"admin_id"`
	AdminName       string   `yaml:"admin_name"`
	AdminScore      string   `yaml:"admin_score"`
	AdminAnswers    string   `yaml:"admin_answers"`
	NoHandle        string   `yaml:"no_handle"`
	AnswerSeparator string   `yaml:"answer_separator"`
}

// DefaultTexts returns the stock Russian copy of the remote-work readiness test.
func DefaultTexts() Texts {
	return Texts{
		Greeting: "🌍 <b>Тест: Подходит ли тебе удалённая работа?</b>\n\n" +
			"Узнай, готова ли ты к новому уровню свободы, самореализации и дохода — прямо из дома.",
		StartButton:     "🌍 Пройти тест",
		StartPhrases:    []string{"начать опрос", "опрос", "тест"},
		ChooseAnswer:    "Пожалуйста, выберите один из вариантов ответа:",
		StartFirst:      "Нажмите '🌍 Пройти тест' чтобы начать.",
		Invite:          "Нажмите '🌍 Пройти тест' чтобы начать тестирование.",
		ResultHeader:    "💫 <b>Результаты теста:</b>",
		ScoreLine:       "📊 <b>Ваш результат: %d баллов</b>",
		CallToAction:    "💌 Готова к первому шагу?",
		AdminHeader:     "📊 Новый результат теста:",
		AdminUser:       "👤 Пользователь: @%s",
		AdminID:         "🆔 ID: %s",
		AdminName:       "📛 Имя: %s",
		AdminScore:      "🎯 Баллы: %d",
		AdminAnswers:    "📝 Ответы: %s",
		NoHandle:        "нет",
		AnswerSeparator: ", ",
	}
}

// Merge fills empty fields of t from defaults.
func (t Texts) Merge(defaults Texts) Texts {
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&t.Greeting, defaults.Greeting)
	fill(&t.StartButton, defaults.StartButton)
	fill(&t.ChooseAnswer, defaults.ChooseAnswer)
	fill(&t.StartFirst, defaults.StartFirst)
	fill(&t.Invite, defaults.Invite)
	fill(&t.ResultHeader, defaults.ResultHeader)
	fill(&t.ScoreLine, defaults.ScoreLine)
	fill(&t.CallToAction, defaults.CallToAction)
	fill(&t.Contact, defaults.Contact)
	fill(&t.AdminHeader, defaults.AdminHeader)
	fill(&t.AdminUser, defaults.AdminUser)
	fill(&t.AdminID, defaults.AdminID)
	fill(&t.AdminName, defaults.AdminName)
	fill(&t.AdminScore, defaults.AdminScore)
	fill(&t.AdminAnswers, defaults.AdminAnswers)
	fill(&t.NoHandle, defaults.NoHandle)
	fill(&t.AnswerSeparator, defaults.AnswerSeparator)
	if len(t.StartPhrases) == 0 {
		t.StartPhrases = append([]string(nil), defaults.StartPhrases...)
	}
	return t
}

// Validate checks that every format template carries exactly the one
// placeholder the bot fills in.
func (t Texts) Validate() error {
	templates := []struct {
		name, format, verb string
	}{
		{"score_line", t.ScoreLine, "%d"},
		{"admin_user", t.AdminUser, "%s"},
		{"admin_id", t.AdminID, "%s"},
		{"admin_name", t.AdminName, "%s"},
		{"admin_score", t.AdminScore, "%d"},
		{"admin_answers", t.AdminAnswers, "%s"},
	}
	for _, tpl := range templates {
		plain := strings.ReplaceAll(tpl.format, "%%", "")
		if strings.Count(plain, "%") != 1 || !strings.Contains(plain, tpl.verb) {
			return fmt.Errorf("%w: texts.%s must contain exactly one %s, got %q", ErrInvalidTexts, tpl.name, tpl.verb, tpl.format)
		}
	}
	return nil
}

// IsStartPhrase reports whether text is one of the alternate start phrases.
func (t Texts) IsStartPhrase(text string) bool {
	normalized := NormalizeToken(text)
	for _, p := range t.StartPhrases {
		if NormalizeToken(p) == normalized {
			return true
		}
	}
	return false
}
