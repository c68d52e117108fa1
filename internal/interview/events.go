package interview

type EventType string

const (
	EventState      EventType = "state"
	EventMessage    EventType = "message"
	EventProgress   EventType = "progress"
	EventUtterance  EventType = "utterance"
	EventRecord     EventType = "record"
	EventEvaluation EventType = "evaluation"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Event is one update pushed to the page. Only the fields relevant to Type
// are set.
type Event struct {
	Type    EventType         `json:"type"`
	Level   Level             `json:"level,omitempty"`
	Role    Role              `json:"role,omitempty"`
	Text    string            `json:"text,omitempty"`
	Current int               `json:"current,omitempty"`
	Total   int               `json:"total,omitempty"`
	Record  *TranscriptRecord `json:"record,omitempty"`
	Session *SessionView      `json:"session,omitempty"`
	Report  *Report           `json:"report,omitempty"`
}
