package httpserver

import (
	"context"
	"embed"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/chadiek/mock-interview/internal/interview"
	"github.com/chadiek/mock-interview/internal/live"
	"github.com/chadiek/mock-interview/internal/middleware"
	"github.com/chadiek/mock-interview/internal/tts"
	"github.com/chadiek/mock-interview/internal/usecase"
)

//go:embed web
var webFS embed.FS

const (
	idleAvatarURL     = "/assets/avatar/idle"
	speakingAvatarURL = "/assets/avatar/speaking"
)

type Options struct {
	AuthPassword       string
	AudioDir           string
	AvatarIdlePath     string
	AvatarSpeakingPath string
}

// Server bundles the HTTP router and dependencies.
type Server struct {
	Router *echo.Echo

	opts       Options
	interviews *usecase.Interviews
	logger     *log.Logger
	upgrader   websocket.Upgrader
}

// New builds the routes. Both avatar images must exist.
func New(opts Options, interviews *usecase.Interviews, logger *log.Logger) (*Server, error) {
	for _, p := range []string{opts.AvatarIdlePath, opts.AvatarSpeakingPath} {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("avatar image: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("avatar image %s is a directory", p)
		}
	}
	if opts.AudioDir == "" {
		opts.AudioDir = os.TempDir()
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		Router:     NewRouter(),
		opts:       opts,
		interviews: interviews,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  65536,
			WriteBufferSize: 65536,
		},
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.Router
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/", s.index)
	e.GET(idleAvatarURL, func(c echo.Context) error { return c.File(s.opts.AvatarIdlePath) })
	e.GET(speakingAvatarURL, func(c echo.Context) error { return c.File(s.opts.AvatarSpeakingPath) })
	e.GET("/api/tracks", s.tracks)
	guard := middleware.PasswordAuth(s.opts.AuthPassword)
	e.GET("/audio/:name", s.audio, guard)
	e.GET("/ws", s.ws, guard)
}

func (s *Server) index(c echo.Context) error {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, page)
}

type trackDTO struct {
	Name      string `json:"name"`
	Questions int    `json:"questions"`
}

func (s *Server) tracks(c echo.Context) error {
	var out []trackDTO
	for _, t := range s.interviews.Catalog().Tracks() {
		out = append(out, trackDTO{Name: t.Name, Questions: t.Len()})
	}
	return c.JSON(http.StatusOK, out)
}

// audio serves transient speech files only.
func (s *Server) audio(c echo.Context) error {
	name := c.Param("name")
	if !strings.HasPrefix(name, tts.FilePrefix) || name != filepath.Base(name) || strings.Contains(name, "..") {
		return echo.ErrNotFound
	}
	path := filepath.Join(s.opts.AudioDir, name)
	if _, err := os.Stat(path); err != nil {
		return echo.ErrNotFound
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.File(path)
}

func (s *Server) ws(c echo.Context) error {
	wsConn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("ws upgrade error", "err", err)
		return nil
	}
	conn := live.NewConn(wsConn, live.Avatars{Idle: idleAvatarURL, Speaking: speakingAvatarURL}, s.logger)
	ctrl := s.interviews.NewController(conn)
	logger := s.logger.With("session", ctrl.Session().ID())
	logger.Info("page connected", "remote", c.RealIP())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial := ctrl.Session().View()
	conn.Emit(interview.Event{Type: interview.EventState, Session: &initial})

	d := live.NewDispatcher(ctrl, logger)
	if err := conn.Serve(ctx, d.Handler(ctx)); err != nil {
		logger.Debug("ws read ended", "err", err)
	}
	cancel()
	ctrl.End()
	d.Wait()
	logger.Info("page disconnected")
	return nil
}
