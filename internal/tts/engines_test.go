package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestElevenLabs_WritesMP3(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice/stream" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "Hello" {
			t.Errorf("unexpected text %v", body["text"])
		}
		_, _ = w.Write([]byte("ID3-fake-mp3"))
	}))
	defer srv.Close()

	e := NewElevenLabs("key", "voice")
	e.BaseURL = srv.URL
	path := filepath.Join(t.TempDir(), "out"+e.Ext())
	if err := e.Synthesize(context.Background(), "Hello", path); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "ID3-fake-mp3" {
		t.Fatalf("file = %q, %v", b, err)
	}
}

func TestElevenLabs_Failures(t *testing.T) {
	if err := NewElevenLabs("", "voice").Synthesize(context.Background(), "hi", filepath.Join(t.TempDir(), "x.mp3")); err == nil {
		t.Fatalf("expected error without api key")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()
	e := NewElevenLabs("key", "voice")
	e.BaseURL = srv.URL
	err := e.Synthesize(context.Background(), "hi", filepath.Join(t.TempDir(), "x.mp3"))
	if err == nil || !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected status error; got %v", err)
	}
}

func TestDeepgram_NoKey(t *testing.T) {
	d := NewDeepgram("", "", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := d.Synthesize(ctx, "hello", filepath.Join(t.TempDir(), "x.wav")); err == nil {
		t.Fatalf("expected error when api key missing")
	}
}

func TestWriteWAV(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0}
	var buf bytes.Buffer
	if err := writeWAV(&buf, pcm, 24000, 1); err != nil {
		t.Fatalf("writeWAV: %v", err)
	}
	b := buf.Bytes()
	if len(b) != 44+len(pcm) {
		t.Fatalf("length = %d", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" || string(b[36:40]) != "data" {
		t.Fatalf("bad chunk ids: %q", b[:44])
	}
	if got := binary.LittleEndian.Uint32(b[24:28]); got != 24000 {
		t.Fatalf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(b[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d", got)
	}
}

func TestGTTS_RunsCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "gtts-cli")
	// writes its arguments into the -o target
	body := "#!/bin/sh\nout=\"\"\nprev=\"\"\nfor a in \"$@\"; do\n  if [ \"$prev\" = \"-o\" ]; then out=\"$a\"; fi\n  prev=\"$a\"\ndone\necho \"$@\" > \"$out\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	g := NewGTTS("en", 6000)
	g.Command = script
	out := filepath.Join(dir, "speech"+g.Ext())
	if err := g.Synthesize(context.Background(), "Hello there", out); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	b, _ := os.ReadFile(out)
	if !strings.Contains(string(b), "Hello there -l en -o "+out) {
		t.Fatalf("unexpected args %q", b)
	}
}

func TestGTTS_Failures(t *testing.T) {
	g := NewGTTS("", 0)
	g.Command = filepath.Join(t.TempDir(), "missing-gtts")
	if err := g.Synthesize(context.Background(), "", "x.mp3"); err == nil {
		t.Fatalf("expected error for empty text")
	}
	if err := g.Synthesize(context.Background(), strings.Repeat("a", maxGTTSText+1), "x.mp3"); err == nil {
		t.Fatalf("expected error for oversize text")
	}
	if err := g.Synthesize(context.Background(), "hi", filepath.Join(t.TempDir(), "x.mp3")); err == nil {
		t.Fatalf("expected error for missing binary")
	}
	if err := g.Validate(); err == nil {
		t.Fatalf("validate should fail for missing binary")
	}
}

type fakeTransport struct {
	id, url string
}

func (f *fakeTransport) PlayAudio(ctx context.Context, id, url string) error {
	f.id, f.url = id, url
	if _, ok := ctx.Deadline(); !ok {
		return context.Canceled
	}
	return nil
}

func TestBrowserPlayer_PlaysByName(t *testing.T) {
	tr := &fakeTransport{}
	p := NewBrowserPlayer(tr)
	if err := p.Play(context.Background(), "/var/tmp/audio/temp_speech_abc.mp3"); err != nil {
		t.Fatalf("play: %v", err)
	}
	if tr.url != "/audio/temp_speech_abc.mp3" || tr.id == "" {
		t.Fatalf("unexpected request id=%q url=%q", tr.id, tr.url)
	}
}
