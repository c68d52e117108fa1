package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chadiek/mock-interview/internal/config"
	httpserver "github.com/chadiek/mock-interview/internal/httpserver"
	"github.com/chadiek/mock-interview/internal/infra/storage"
	"github.com/chadiek/mock-interview/internal/interview"
	"github.com/chadiek/mock-interview/internal/llm"
	"github.com/chadiek/mock-interview/internal/transcript"
	"github.com/chadiek/mock-interview/internal/tts"
	"github.com/chadiek/mock-interview/internal/usecase"
)

var (
	addr       string
	logLevel   string
	tracksFile string

	rootCmd = &cobra.Command{
		Use:          "mock-interview",
		Short:        "Serve the spoken mock interview page",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         serve,
	}

	tracksCmd = &cobra.Command{
		Use:   "tracks",
		Short: "List the built-in interview tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := config.LoadCatalog(tracksFile)
			if err != nil {
				return err
			}
			for _, t := range catalog.Tracks() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d questions)\n", t.Name, t.Len())
				for i, q := range t.Questions {
					fmt.Fprintf(cmd.OutOrStdout(), "  %d. %s\n", i+1, q)
				}
			}
			return nil
		},
	}
)

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDRESS)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	tracksCmd.Flags().StringVar(&tracksFile, "file", os.Getenv("TRACKS_FILE"), "TOML tracks file")
	rootCmd.AddCommand(tracksCmd)
}

func main() {
	log.SetTimeFormat("2006-01-02 15:04:05.000")
	log.SetReportTimestamp(true)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.HTTPAddress = addr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	logger := log.Default()

	audioDir := cfg.AudioDir
	if audioDir == "" {
		audioDir = filepath.Join(os.TempDir(), "mock-interview-audio")
	}
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return fmt.Errorf("audio dir: %w", err)
	}

	deps, err := buildDeps(cfg, audioDir, logger)
	if err != nil {
		return err
	}
	srv, err := httpserver.New(httpserver.Options{
		AuthPassword:       cfg.AuthPassword,
		AudioDir:           audioDir,
		AvatarIdlePath:     cfg.AvatarIdlePath,
		AvatarSpeakingPath: cfg.AvatarSpeakingPath,
	}, usecase.NewInterviews(deps), logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "err", err)
		_ = server.Close()
	}
	return nil
}

func buildDeps(cfg config.Config, audioDir string, logger *log.Logger) (usecase.InterviewDeps, error) {
	policy := interview.DefaultPolicy()
	policy.CaptureTimeout = cfg.CaptureTimeout
	policy.MaxPhrase = cfg.MaxPhrase
	interrupt, err := interview.ParseInterruptPolicy(cfg.InterruptPolicy)
	if err != nil {
		return usecase.InterviewDeps{}, err
	}
	policy.Interrupt = interrupt
	if cfg.HaltOnUnauthorized {
		policy.Halt = llm.Halt
	}

	catalog, err := config.LoadCatalog(cfg.TracksFile)
	if err != nil {
		return usecase.InterviewDeps{}, err
	}

	var synth tts.Synthesizer
	switch cfg.TTSEngine {
	case "elevenlabs":
		synth = tts.NewElevenLabs(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	case "deepgram":
		synth = tts.NewDeepgram(cfg.DeepgramKey, cfg.DeepgramModel, logger)
	default:
		g := tts.NewGTTS(cfg.TTSLanguage, 0)
		if err := g.Validate(); err != nil {
			logger.Warn("gTTS unavailable", "err", err)
		}
		synth = g
	}

	deps := usecase.InterviewDeps{
		Catalog:                  catalog,
		Recognizer:               transcript.NewAssemblyAI(cfg.AssemblyAIKey, logger),
		Synth:                    synth,
		Completer:                llm.NewChatClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.CompletionsPerMinute),
		Policy:                   policy,
		IncludeFollowupInGrading: cfg.IncludeFollowupInGrading,
		AudioDir:                 audioDir,
		SpeakingLead:             cfg.SpeakingLead,
		Logger:                   logger,
	}
	if cfg.Playback == "local" {
		deps.Player = tts.NewLocalPlayer()
	}
	if cfg.ArchiveEnabled() {
		sb, err := storage.NewSupabase(storage.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			return usecase.InterviewDeps{}, err
		}
		deps.Archiver = usecase.NewReportArchiver(sb)
	}
	return deps, nil
}
