package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chadiek/mock-interview/internal/interview"
)

const (
	// SilenceThreshold is the quiet window that ends a phrase.
	SilenceThreshold = 700 * time.Millisecond
	// ContinuationExtension is added when the last word implies continuation.
	ContinuationExtension = 1200 * time.Millisecond
	// DrainTimeout bounds the wait for the recognizer's final turns.
	DrainTimeout = 2 * time.Second
)

var ErrMicrophoneClosed = errors.New("microphone closed")

// Microphone is a source of 16 kHz mono PCM16LE frames. The channel closes
// when the source goes away.
type Microphone interface {
	OpenMic(ctx context.Context) (<-chan []byte, error)
	CloseMic()
}

// Recognizer starts one streaming recognition session.
type Recognizer interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is a live recognition session. Updates carries the full text
// recognised so far; Close ends the session and returns the final text.
type Stream interface {
	Send(pcm []byte) error
	Updates() <-chan string
	Close(ctx context.Context) (string, error)
}

// Listener implements interview.Capturer over a Microphone and a Recognizer.
type Listener struct {
	mic        Microphone
	recognizer Recognizer
	logger     *log.Logger

	VoiceRMS     float64
	Silence      time.Duration
	Continuation time.Duration
	Drain        time.Duration
	Tick         time.Duration

	now func() time.Time
}

func NewListener(mic Microphone, recognizer Recognizer, logger *log.Logger) *Listener {
	if logger == nil {
		logger = log.Default()
	}
	return &Listener{
		mic:          mic,
		recognizer:   recognizer,
		logger:       logger,
		VoiceRMS:     DefaultVoiceRMS,
		Silence:      SilenceThreshold,
		Continuation: ContinuationExtension,
		Drain:        DrainTimeout,
		Tick:         50 * time.Millisecond,
		now:          time.Now,
	}
}

// Capture listens for one phrase. It fails with interview.ErrListenTimeout
// when no speech starts within timeout and stops accepting audio maxPhrase
// after speech started.
func (l *Listener) Capture(ctx context.Context, timeout, maxPhrase time.Duration) (string, error) {
	stream, err := l.recognizer.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", interview.ErrRecognizerUnavailable, err)
	}
	frames, err := l.mic.OpenMic(ctx)
	if err != nil {
		_, _ = stream.Close(ctx)
		return "", fmt.Errorf("open microphone: %w", err)
	}

	text, captureErr := l.listen(ctx, frames, stream, timeout, maxPhrase)
	l.mic.CloseMic()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.Drain)
	defer cancel()
	final, streamErr := stream.Close(drainCtx)
	if captureErr != nil {
		return "", captureErr
	}
	if final == "" {
		final = text
	}
	final = strings.TrimSpace(final)
	if final == "" {
		if streamErr != nil {
			return "", fmt.Errorf("%w: %v", interview.ErrRecognizerUnavailable, streamErr)
		}
		return "", interview.ErrUnintelligible
	}
	return final, nil
}

func (l *Listener) listen(ctx context.Context, frames <-chan []byte, stream Stream, timeout, maxPhrase time.Duration) (string, error) {
	start := l.now()
	var (
		voiced     bool
		lastVoice  time.Time
		lastUpdate time.Time
		phraseEnd  time.Time
		latest     string
	)
	updates := stream.Updates()
	ticker := time.NewTicker(l.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case pcm, ok := <-frames:
			if !ok {
				if voiced {
					return latest, nil
				}
				return "", ErrMicrophoneClosed
			}
			if frameRMS(pcm) >= l.VoiceRMS {
				lastVoice = l.now()
				if !voiced {
					voiced = true
					phraseEnd = lastVoice.Add(maxPhrase)
					l.logger.Debug("speech started")
				}
			}
			if err := stream.Send(pcm); err != nil {
				l.logger.Warn("send audio failed", "err", err)
			}

		case text, ok := <-updates:
			if !ok {
				if voiced || latest != "" {
					return latest, nil
				}
				return "", interview.ErrRecognizerUnavailable
			}
			latest = text
			lastUpdate = l.now()
			if !voiced && strings.TrimSpace(text) != "" {
				voiced = true
				lastVoice = lastUpdate
				phraseEnd = lastUpdate.Add(maxPhrase)
			}

		case <-ticker.C:
			now := l.now()
			if !voiced {
				if now.Sub(start) >= timeout {
					return "", interview.ErrListenTimeout
				}
				continue
			}
			if !now.Before(phraseEnd) {
				l.logger.Debug("phrase limit reached")
				return latest, nil
			}
			threshold := l.Silence
			if isContinuationLikely(latest) {
				threshold += l.Continuation
			}
			if now.Sub(lastVoice) >= threshold && now.Sub(lastUpdate) >= threshold {
				return latest, nil
			}
		}
	}
}
