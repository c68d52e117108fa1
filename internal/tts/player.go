package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// PlaybackTransport asks a remote page to play url and blocks until the page
// reports that playback with the given id ended.
type PlaybackTransport interface {
	PlayAudio(ctx context.Context, id, url string) error
}

// BrowserPlayer plays transient files through the candidate's browser. The
// files are served under URLPrefix by name.
type BrowserPlayer struct {
	transport PlaybackTransport
	URLPrefix string
	// MaxWait bounds one playback in case the page never answers.
	MaxWait time.Duration
}

func NewBrowserPlayer(transport PlaybackTransport) *BrowserPlayer {
	return &BrowserPlayer{transport: transport, URLPrefix: "/audio/", MaxWait: 2 * time.Minute}
}

func (p *BrowserPlayer) Play(ctx context.Context, path string) error {
	if p.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.MaxWait)
		defer cancel()
	}
	return p.transport.PlayAudio(ctx, uuid.NewString(), p.URLPrefix+filepath.Base(path))
}

const localSampleRate = 44100

// LocalPlayer plays on the server's own sound card: ffmpeg decodes the file
// to PCM and oto plays it.
type LocalPlayer struct {
	FFmpeg string
	Volume float64
	Poll   time.Duration
}

func NewLocalPlayer() *LocalPlayer {
	return &LocalPlayer{FFmpeg: "ffmpeg", Volume: 1.0, Poll: 10 * time.Millisecond}
}

func (p *LocalPlayer) Play(ctx context.Context, path string) error {
	pcm, err := decodePCM(ctx, p.FFmpeg, path, localSampleRate)
	if err != nil {
		return err
	}
	return playPCM(ctx, pcm, p.Volume, p.Poll)
}

// decodePCM converts any ffmpeg readable file to mono s16le at rate.
func decodePCM(ctx context.Context, ffmpeg, path string, rate int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-loglevel", "error",
		"-i", path,
		"-f", "s16le",
		"-ar", fmt.Sprint(rate),
		"-ac", "1",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg conversion timeout: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no PCM output")
	}
	return stdout.Bytes(), nil
}
