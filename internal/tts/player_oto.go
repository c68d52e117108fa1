//go:build !nocgo

package tts

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// sharedContext returns the process wide oto context; oto allows one.
func sharedContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   localSampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx = ctx
	})
	return otoCtx, otoErr
}

func playPCM(ctx context.Context, pcm []byte, volume float64, poll time.Duration) error {
	octx, err := sharedContext()
	if err != nil {
		return err
	}
	player := octx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.SetVolume(volume)
	player.Play()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}
