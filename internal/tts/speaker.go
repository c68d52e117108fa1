package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultSpeakingLead is the delay between playback start and the speaking
// avatar.
const DefaultSpeakingLead = 1500 * time.Millisecond

// FilePrefix names every transient speech file.
const FilePrefix = "temp_speech_"

// Synthesizer renders text into an audio file at path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, path string) error
	// Ext is the file extension of the produced audio, dot included.
	Ext() string
}

// Player plays an audio file and returns when playback is over.
type Player interface {
	Play(ctx context.Context, path string) error
}

// Indicator is the talking avatar.
type Indicator interface {
	Idle()
	Speaking()
}

type MuteSource interface {
	Muted() bool
}

// Speaker implements interview.Speaker.
type Speaker struct {
	synth     Synthesizer
	player    Player
	indicator Indicator
	mute      MuteSource
	dir       string
	logger    *log.Logger

	Lead time.Duration
}

func NewSpeaker(synth Synthesizer, player Player, indicator Indicator, mute MuteSource, dir string, logger *log.Logger) *Speaker {
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Speaker{
		synth:     synth,
		player:    player,
		indicator: indicator,
		mute:      mute,
		dir:       dir,
		logger:    logger,
		Lead:      DefaultSpeakingLead,
	}
}

// Speak synthesizes text into a transient file and plays it. The speaking
// avatar is shown Lead after playback starts; the idle avatar comes back and
// the file is removed on every exit path. Muted speakers return at once.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if s.mute != nil && s.mute.Muted() {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	path := filepath.Join(s.dir, FilePrefix+strings.ReplaceAll(uuid.NewString(), "-", "")+s.synth.Ext())
	defer s.remove(path)
	defer s.indicator.Idle()

	if err := s.synth.Synthesize(ctx, text, path); err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.player.Play(gctx, path)
	})
	g.Go(func() error {
		t := time.NewTimer(s.Lead)
		defer t.Stop()
		select {
		case <-t.C:
			s.indicator.Speaking()
		case <-gctx.Done():
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

func (s *Speaker) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("could not remove speech file", "path", path, "err", err)
	}
}
