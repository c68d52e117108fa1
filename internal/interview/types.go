package interview

import (
	"context"
	"errors"
	"time"
)

// Capture failures. Speech adapters wrap one of these so the controller can
// pick the message shown to the candidate.
var (
	ErrListenTimeout         = errors.New("listening timed out")
	ErrUnintelligible        = errors.New("could not understand the audio")
	ErrRecognizerUnavailable = errors.New("speech recognition unavailable")
)

var (
	ErrEmptyUsername  = errors.New("please enter your name before starting")
	ErrUnknownTrack   = errors.New("unknown interview track")
	ErrNotStarted     = errors.New("interview has not started")
	ErrNotCompleted   = errors.New("interview is not complete")
	ErrTranscriptFull = errors.New("transcript already holds one record per question")
	ErrHalted         = errors.New("interview halted")

	errSessionReset = errors.New("session was reset")
)

// Capturer turns one bounded microphone window into text.
type Capturer interface {
	Capture(ctx context.Context, timeout, maxPhrase time.Duration) (string, error)
}

// Speaker synthesizes and plays text. It returns once playback is over.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Completer is a single request/response exchange with a chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Events receives everything the page needs to render.
type Events interface {
	Emit(Event)
}

// Archiver stores an evaluated interview somewhere durable.
type Archiver interface {
	Archive(ctx context.Context, view SessionView, report Report) error
}

type nopEvents struct{}

func (nopEvents) Emit(Event) {}
