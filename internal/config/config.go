package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress  string `env:"HTTP_ADDRESS" envDefault:":8080"`
	AuthPassword string `env:"AUTH_PASSWORD"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	OpenAIKey            string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL        string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel          string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	CompletionsPerMinute int    `env:"COMPLETIONS_PER_MINUTE" envDefault:"60"`
	HaltOnUnauthorized   bool   `env:"HALT_ON_UNAUTHORIZED"`

	AssemblyAIKey  string        `env:"ASSEMBLYAI_API_KEY"`
	CaptureTimeout time.Duration `env:"CAPTURE_TIMEOUT" envDefault:"5s"`
	MaxPhrase      time.Duration `env:"MAX_PHRASE" envDefault:"15s"`

	TTSEngine         string        `env:"TTS_ENGINE" envDefault:"gtts"`
	TTSLanguage       string        `env:"TTS_LANGUAGE" envDefault:"en"`
	ElevenLabsKey     string        `env:"ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string        `env:"ELEVENLABS_VOICE_ID"`
	DeepgramKey       string        `env:"DEEPGRAM_API_KEY"`
	DeepgramModel     string        `env:"DEEPGRAM_MODEL" envDefault:"aura-2-thalia-en"`
	Playback          string        `env:"PLAYBACK" envDefault:"browser"`
	AudioDir          string        `env:"AUDIO_DIR"`
	SpeakingLead      time.Duration `env:"SPEAKING_LEAD" envDefault:"1500ms"`

	AvatarIdlePath     string `env:"AVATAR_IDLE_PATH" envDefault:"assets/avatar-idle.svg"`
	AvatarSpeakingPath string `env:"AVATAR_SPEAKING_PATH" envDefault:"assets/avatar-speaking.svg"`

	IncludeFollowupInGrading bool   `env:"INCLUDE_FOLLOWUP_IN_GRADING"`
	InterruptPolicy          string `env:"INTERRUPT_POLICY" envDefault:"retry"`
	TracksFile               string `env:"TRACKS_FILE"`

	SupabaseURL    string `env:"SUPABASE_URL"`
	SupabaseKey    string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseBucket string `env:"SUPABASE_BUCKET" envDefault:"interview-reports"`
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded", "err", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.warn()
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch c.TTSEngine {
	case "gtts", "elevenlabs", "deepgram":
	default:
		return fmt.Errorf("TTS_ENGINE must be gtts, elevenlabs or deepgram, got %q", c.TTSEngine)
	}
	switch c.Playback {
	case "browser", "local":
	default:
		return fmt.Errorf("PLAYBACK must be browser or local, got %q", c.Playback)
	}
	if c.CaptureTimeout <= 0 || c.MaxPhrase <= 0 {
		return fmt.Errorf("CAPTURE_TIMEOUT and MAX_PHRASE must be positive")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// ArchiveEnabled reports whether evaluated reports go to Supabase storage.
func (c Config) ArchiveEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

func (c Config) warn() {
	if c.OpenAIKey == "" {
		log.Warn("OPENAI_API_KEY not set - follow-ups and evaluation will fall back to the error text")
	}
	if c.AssemblyAIKey == "" {
		log.Warn("ASSEMBLYAI_API_KEY not set - speech capture will not work")
	}
	switch c.TTSEngine {
	case "elevenlabs":
		if c.ElevenLabsKey == "" || c.ElevenLabsVoiceID == "" {
			log.Warn("ELEVENLABS_API_KEY or ELEVENLABS_VOICE_ID not set - speech playback will fail")
		}
	case "deepgram":
		if c.DeepgramKey == "" {
			log.Warn("DEEPGRAM_API_KEY not set - speech playback will fail")
		}
	}
	if c.AuthPassword == "" {
		log.Warn("AUTH_PASSWORD not set - the interview socket is open to anyone")
	}
	log.Info("config", "addr", c.HTTPAddress, "tts", c.TTSEngine, "playback", c.Playback, "archive", c.ArchiveEnabled(), "level", strings.ToLower(c.LogLevel))
}
