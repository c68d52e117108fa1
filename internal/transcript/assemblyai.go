package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const DefaultAssemblyAIURL = "wss://streaming.assemblyai.com/v3/ws"

var errNoAPIKey = errors.New("assemblyai api key is empty")

// AssemblyAI opens realtime streaming sessions, one per capture.
type AssemblyAI struct {
	APIKey     string
	URL        string
	SampleRate int
	Dialer     *websocket.Dialer
	Logger     *log.Logger
}

func NewAssemblyAI(apiKey string, logger *log.Logger) *AssemblyAI {
	if logger == nil {
		logger = log.Default()
	}
	return &AssemblyAI{
		APIKey:     apiKey,
		URL:        DefaultAssemblyAIURL,
		SampleRate: 16000,
		Dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		Logger:     logger.WithPrefix("assemblyai"),
	}
}

type beginMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	ExpiresAt int64  `json:"expires_at"`
}

type turnMessage struct {
	Type          string `json:"type"`
	TurnOrder     int    `json:"turn_order"`
	Transcript    string `json:"transcript"`
	EndOfTurn     bool   `json:"end_of_turn"`
	TurnFormatted bool   `json:"turn_is_formatted"`
}

type terminationMessage struct {
	Type                   string  `json:"type"`
	AudioDurationSeconds   float64 `json:"audio_duration_seconds"`
	SessionDurationSeconds float64 `json:"session_duration_seconds"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Open dials a new streaming session.
func (a *AssemblyAI) Open(ctx context.Context) (Stream, error) {
	if a.APIKey == "" {
		return nil, errNoAPIKey
	}
	params := url.Values{}
	params.Set("sample_rate", fmt.Sprint(a.SampleRate))
	params.Set("encoding", "pcm_s16le")
	params.Set("format_turns", "true")
	wsURL := a.URL + "?" + params.Encode()

	headers := map[string][]string{"Authorization": {a.APIKey}}
	conn, resp, err := a.Dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			a.Logger.Warn("connect failed", "status", resp.StatusCode)
		}
		return nil, fmt.Errorf("connect assemblyai: %w", err)
	}
	s := &assemblyStream{
		conn:    conn,
		logger:  a.Logger,
		updates: make(chan string, 32),
		done:    make(chan struct{}),
		turns:   map[int]string{},
	}
	go s.readLoop()
	return s, nil
}

type assemblyStream struct {
	conn   *websocket.Conn
	logger *log.Logger

	writeMu sync.Mutex
	closed  bool

	updates chan string
	done    chan struct{}

	mu    sync.Mutex
	turns map[int]string
	err   error
}

func (s *assemblyStream) Send(pcm []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return errors.New("stream closed")
	}
	return s.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

func (s *assemblyStream) Updates() <-chan string { return s.updates }

// Close sends Terminate and waits for the final turns until ctx is done.
func (s *assemblyStream) Close(ctx context.Context) (string, error) {
	s.writeMu.Lock()
	if !s.closed {
		s.closed = true
		_ = s.conn.WriteJSON(map[string]string{"type": "Terminate"})
	}
	s.writeMu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
		s.logger.Debug("drain timed out")
	}
	_ = s.conn.Close()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textLocked(), s.err
}

func (s *assemblyStream) readLoop() {
	defer close(s.done)
	defer close(s.updates)
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			if s.err == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !s.isClosing() {
				s.err = err
			}
			s.mu.Unlock()
			return
		}
		if s.process(message) {
			return
		}
	}
}

func (s *assemblyStream) isClosing() bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.closed
}

// process handles one server message and reports whether the session ended.
func (s *assemblyStream) process(message []byte) bool {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &base); err != nil {
		s.logger.Warn("bad message", "err", err)
		return false
	}
	switch base.Type {
	case "Begin":
		var msg beginMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			s.logger.Debug("session began", "id", msg.ID, "expires", time.Unix(msg.ExpiresAt, 0).Format(time.RFC3339))
		}
	case "Turn":
		var msg turnMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.logger.Warn("bad turn", "err", err)
			return false
		}
		s.mu.Lock()
		s.turns[msg.TurnOrder] = msg.Transcript
		text := s.textLocked()
		s.mu.Unlock()
		select {
		case s.updates <- text:
		default:
		}
	case "Termination":
		var msg terminationMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			s.logger.Debug("session terminated", "audio", msg.AudioDurationSeconds, "session", msg.SessionDurationSeconds)
		}
		return true
	case "Error":
		var msg errorMessage
		_ = json.Unmarshal(message, &msg)
		s.logger.Error("stream error", "err", msg.Error)
		s.mu.Lock()
		s.err = errors.New(msg.Error)
		s.mu.Unlock()
	default:
		s.logger.Debug("unknown message", "type", base.Type)
	}
	return false
}

func (s *assemblyStream) textLocked() string {
	orders := make([]int, 0, len(s.turns))
	for o := range s.turns {
		orders = append(orders, o)
	}
	sort.Ints(orders)
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if t := strings.TrimSpace(s.turns[o]); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
