package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/pkg/api/speak/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	"github.com/deepgram/deepgram-go-sdk/pkg/client/speak"
)

// Deepgram renders linear16 PCM over the Aura websocket and stores it as WAV.
type Deepgram struct {
	apiKey     string
	model      string
	sampleRate int
	logger     *log.Logger

	// IdleWindow ends the stream once audio stopped arriving for this long.
	IdleWindow time.Duration
	Deadline   time.Duration
}

func NewDeepgram(apiKey, model string, logger *log.Logger) *Deepgram {
	if model == "" {
		model = "aura-2-thalia-en"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Deepgram{
		apiKey:     apiKey,
		model:      model,
		sampleRate: 24000,
		logger:     logger.WithPrefix("deepgram"),
		IdleWindow: 400 * time.Millisecond,
		Deadline:   20 * time.Second,
	}
}

func (d *Deepgram) Ext() string { return ".wav" }

func (d *Deepgram) Synthesize(ctx context.Context, text, path string) error {
	if d.apiKey == "" {
		return errors.New("deepgram: api key missing")
	}
	pcm, err := d.stream(ctx, text)
	if err != nil {
		return err
	}
	if len(pcm) == 0 {
		return errors.New("deepgram: no audio received")
	}
	var buf bytes.Buffer
	if err := writeWAV(&buf, pcm, d.sampleRate, 1); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func (d *Deepgram) stream(ctx context.Context, text string) ([]byte, error) {
	options := &clientinterfaces.WSSpeakOptions{
		Model:      d.model,
		Encoding:   "linear16",
		SampleRate: d.sampleRate,
	}
	cb := &speakCallback{logger: d.logger}
	dg, err := speak.NewWSUsingCallback(ctx, d.apiKey, &clientinterfaces.ClientOptions{}, options, cb)
	if err != nil {
		return nil, fmt.Errorf("deepgram: create ws client: %w", err)
	}
	defer dg.Stop()

	if ok := dg.Connect(); !ok {
		return nil, errors.New("deepgram: connect failed")
	}
	if err := dg.SpeakWithText(text); err != nil {
		return nil, fmt.Errorf("deepgram: speak text: %w", err)
	}
	if err := dg.Flush(); err != nil {
		d.logger.Warn("flush error", "err", err)
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.Now().Add(d.Deadline)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			if cb.idleFor() > d.IdleWindow || cb.isFlushed() {
				return cb.audio(), nil
			}
			if time.Now().After(deadline) {
				return cb.audio(), nil
			}
		}
	}
}

type speakCallback struct {
	logger *log.Logger

	mu      sync.Mutex
	buf     bytes.Buffer
	last    time.Time
	flushed bool
}

func (s *speakCallback) idleFor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last.IsZero() {
		return 0
	}
	return time.Since(s.last)
}

func (s *speakCallback) isFlushed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushed && s.buf.Len() > 0
}

func (s *speakCallback) audio() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func (s *speakCallback) Open(*msginterfaces.OpenResponse) error         { return nil }
func (s *speakCallback) Metadata(*msginterfaces.MetadataResponse) error { return nil }
func (s *speakCallback) Flush(*msginterfaces.FlushedResponse) error {
	s.mu.Lock()
	s.flushed = true
	s.mu.Unlock()
	return nil
}
func (s *speakCallback) Clear(*msginterfaces.ClearedResponse) error { return nil }
func (s *speakCallback) Close(*msginterfaces.CloseResponse) error   { return nil }
func (s *speakCallback) Warning(w *msginterfaces.WarningResponse) error {
	s.logger.Warn("speak warning", "warning", w)
	return nil
}
func (s *speakCallback) Error(e *msginterfaces.ErrorResponse) error {
	s.logger.Error("speak error", "err", e)
	return nil
}
func (s *speakCallback) UnhandledEvent([]byte) error { return nil }
func (s *speakCallback) Binary(byMsg []byte) error {
	if len(byMsg) == 0 {
		return nil
	}
	s.mu.Lock()
	s.buf.Write(byMsg)
	s.last = time.Now()
	s.mu.Unlock()
	return nil
}
