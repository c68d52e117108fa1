package usecase

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/chadiek/mock-interview/internal/interview"
	"github.com/chadiek/mock-interview/internal/transcript"
	"github.com/chadiek/mock-interview/internal/tts"
)

// Link is everything a page connection provides to one interview.
type Link interface {
	interview.Events
	tts.Indicator
	tts.PlaybackTransport
	transcript.Microphone
}

type InterviewDeps struct {
	Catalog    interview.Catalog
	Recognizer transcript.Recognizer
	Synth      tts.Synthesizer
	// Player overrides browser playback, e.g. tts.LocalPlayer.
	Player    tts.Player
	Completer interview.Completer
	Archiver  interview.Archiver
	Policy    interview.Policy

	IncludeFollowupInGrading bool
	AudioDir                 string
	SpeakingLead             time.Duration
	Logger                   *log.Logger
}

// Interviews builds one controller per page connection.
type Interviews struct {
	deps InterviewDeps
}

func NewInterviews(d InterviewDeps) *Interviews {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.SpeakingLead <= 0 {
		d.SpeakingLead = tts.DefaultSpeakingLead
	}
	return &Interviews{deps: d}
}

func (s *Interviews) Catalog() interview.Catalog { return s.deps.Catalog }

func (s *Interviews) NewController(link Link) *interview.Controller {
	d := s.deps
	session := interview.NewSession(uuid.NewString())
	logger := d.Logger.With("session", session.ID())

	player := d.Player
	if player == nil {
		player = tts.NewBrowserPlayer(link)
	}
	speaker := tts.NewSpeaker(d.Synth, player, link, session, d.AudioDir, logger)
	speaker.Lead = d.SpeakingLead

	return interview.NewController(interview.Deps{
		Session:   session,
		Catalog:   d.Catalog,
		Capturer:  transcript.NewListener(link, d.Recognizer, logger),
		Speaker:   speaker,
		Completer: d.Completer,
		Evaluator: interview.NewEvaluator(d.Completer, d.IncludeFollowupInGrading),
		Events:    link,
		Archiver:  d.Archiver,
		Logger:    d.Logger,
		Policy:    d.Policy,
	})
}
