//go:build nocgo

package tts

import (
	"context"
	"errors"
	"time"
)

func playPCM(ctx context.Context, pcm []byte, volume float64, poll time.Duration) error {
	return errors.New("local playback needs a cgo build")
}
