package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/time/rate"
)

const maxGTTSText = 5000

// GTTS calls gtts-cli (Google Translate TTS) and writes MP3.
type GTTS struct {
	Command  string
	Language string
	Timeout  time.Duration

	limiter *rate.Limiter
}

// NewGTTS limits synthesis to perMinute requests so Google does not block the
// host. perMinute <= 0 uses 50.
func NewGTTS(language string, perMinute int) *GTTS {
	if language == "" {
		language = "en"
	}
	if perMinute <= 0 {
		perMinute = 50
	}
	return &GTTS{
		Command:  "gtts-cli",
		Language: language,
		Timeout:  30 * time.Second,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (g *GTTS) Ext() string { return ".mp3" }

func (g *GTTS) Synthesize(ctx context.Context, text, path string) error {
	if text == "" {
		return errors.New("text cannot be empty")
	}
	if len(text) > maxGTTSText {
		return fmt.Errorf("text too long: %d characters (max %d)", len(text), maxGTTSText)
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, g.Command, text, "-l", g.Language, "-o", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("gtts synthesis timeout: %w", ctx.Err())
		}
		return fmt.Errorf("gtts-cli failed: %w, stderr: %s", err, stderr.String())
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("gtts-cli output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("gtts-cli produced no audio, stderr: %s", stderr.String())
	}
	return nil
}

// Validate checks that gtts-cli is installed.
func (g *GTTS) Validate() error {
	if _, err := exec.LookPath(g.Command); err != nil {
		return fmt.Errorf("%s not found in PATH: %w (install with: pip install gtts)", g.Command, err)
	}
	return nil
}
