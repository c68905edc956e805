package domain

// User is the sender metadata a transport attaches to every inbound message.
type User struct {
	ID          string
	DisplayName string
	Handle      string
}

// Inbound is a raw chat message as delivered by a transport.
type Inbound struct {
	User    User
	ChatID  string
	Text    string
	Command string // set when the platform recognized a bot command, without the slash
}

// EventKind tags the classified form of an inbound message.
type EventKind int

const (
	EventText EventKind = iota
	EventCommand
	EventStart
	EventAnswer
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventStart:
		return "start"
	case EventAnswer:
		return "answer"
	default:
		return "text"
	}
}

// Event is an inbound message after classification.
type Event struct {
	Kind   EventKind
	User   User
	ChatID string
	Text   string
	// Token and Points are set for EventAnswer.
	Token  string
	Points int
}

// Outbound is a message to deliver to a chat.
type Outbound struct {
	ChatID   string     `json:"chatId"`
	Text     string     `json:"text"`
	Keyboard [][]string `json:"keyboard,omitempty"`
	RichText bool       `json:"richText"`
}
