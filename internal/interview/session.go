package interview

import (
	"fmt"
	"sync"
)

// State is the position of a session in the interview state machine.
type State int

const (
	StateNotStarted State = iota
	StateGreeting
	StateAskingQuestion
	StateAwaitingAnswer
	StateRequestingFollowup
	StateSpeakingFollowup
	StateAwaitingFollowupAnswer
	StateFarewell
	StateCompleted
	StateEvaluationRequested
	StateEvaluationShown
)

var stateNames = [...]string{
	StateNotStarted:             "not-started",
	StateGreeting:               "greeting",
	StateAskingQuestion:         "asking-question",
	StateAwaitingAnswer:         "awaiting-answer",
	StateRequestingFollowup:     "requesting-followup",
	StateSpeakingFollowup:       "speaking-followup",
	StateAwaitingFollowupAnswer: "awaiting-followup-answer",
	StateFarewell:               "farewell",
	StateCompleted:              "completed",
	StateEvaluationRequested:    "evaluation-requested",
	StateEvaluationShown:        "evaluation-shown",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Session is one candidate's run through a track. Every field is reset
// together by Reset; the epoch lets a controller that was blocked in a
// capture or playback notice the reset once that call returns.
type Session struct {
	mu sync.Mutex

	id        string
	username  string
	track     Track
	started   bool
	greeted   bool
	paused    bool
	muted     bool
	completed bool

	state      State
	index      int
	transcript *Store
	scores     []int
	epoch      uint64
}

func NewSession(id string) *Session {
	return &Session{id: id, transcript: NewStore(0)}
}

func (s *Session) ID() string { return s.id }

// Begin records the candidate and track. It reports false when the session
// had already started, leaving it untouched.
func (s *Session) Begin(username string, track Track) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.username = username
	s.track = cloneTrack(track)
	s.started = true
	s.state = StateGreeting
	s.index = 0
	s.transcript = NewStore(track.Len())
	return true
}

// Reset returns every field to its initial value under one lock.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = ""
	s.track = Track{}
	s.started = false
	s.greeted = false
	s.paused = false
	s.muted = false
	s.completed = false
	s.state = StateNotStarted
	s.index = 0
	s.transcript = NewStore(0)
	s.scores = nil
	s.epoch++
}

func (s *Session) TogglePause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = !s.paused
	return s.paused
}

func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	return s.muted
}

func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// SessionView is an immutable snapshot of a Session.
type SessionView struct {
	ID          string             `json:"id"`
	Username    string             `json:"username"`
	Track       string             `json:"track"`
	TrackLength int                `json:"trackLength"`
	State       State              `json:"state"`
	Index       int                `json:"index"`
	Started     bool               `json:"started"`
	Greeted     bool               `json:"greeted"`
	Paused      bool               `json:"paused"`
	Muted       bool               `json:"muted"`
	Completed   bool               `json:"completed"`
	Transcript  []TranscriptRecord `json:"transcript"`
	Scores      []int              `json:"scores"`
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{
		ID:          s.id,
		Username:    s.username,
		Track:       s.track.Name,
		TrackLength: s.track.Len(),
		State:       s.state,
		Index:       s.index,
		Started:     s.started,
		Greeted:     s.greeted,
		Paused:      s.paused,
		Muted:       s.muted,
		Completed:   s.completed,
		Transcript:  s.transcript.All(),
		Scores:      append([]int(nil), s.scores...),
	}
}

func (s *Session) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

func (s *Session) currentTrack() (string, Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username, cloneTrack(s.track)
}

func (s *Session) alive(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}

// transition moves to state at question index. It reports false when the
// session was reset since epoch was taken.
func (s *Session) transition(epoch uint64, state State, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.state = state
	s.index = index
	return true
}

func (s *Session) markGreeted(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.greeted = true
	return true
}

func (s *Session) appendRecord(epoch uint64, next int, r TranscriptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return errSessionReset
	}
	if err := s.transcript.Append(r); err != nil {
		return err
	}
	s.index = next
	return nil
}

func (s *Session) complete(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.completed = true
	s.state = StateCompleted
	s.index = s.track.Len()
	return true
}

func (s *Session) storeScores(epoch uint64, scores []int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.scores = append([]int(nil), scores...)
	s.state = StateEvaluationShown
	return true
}
