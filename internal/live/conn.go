package live

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/chadiek/mock-interview/internal/interview"
)

var ErrClosed = errors.New("live connection closed")

// Message is the JSON frame exchanged with the page in both directions.
//
// Page to server: start, pause, mute, end, evaluate, played, bye.
// Server to page: event, listen, listen-stop, play, stop-audio, avatar, error.
type Message struct {
	Type string `json:"type"`

	Username string `json:"username,omitempty"`
	Track    string `json:"track,omitempty"`

	ID  string `json:"id,omitempty"`
	URL string `json:"url,omitempty"`

	Avatar string `json:"avatar,omitempty"`
	Image  string `json:"image,omitempty"`

	Event *interview.Event `json:"event,omitempty"`
	Error string           `json:"error,omitempty"`
}

// Avatars are the image URLs for the two indicator states.
type Avatars struct {
	Idle     string
	Speaking string
}

const writeWait = 10 * time.Second

// Conn is one page's websocket. Writes are serialized; Serve owns reads.
type Conn struct {
	ws      *websocket.Conn
	logger  *log.Logger
	avatars Avatars

	writeMu sync.Mutex

	mu      sync.Mutex
	mic     chan []byte
	pending map[string]chan struct{}
	done    chan struct{}
	closed  bool
}

func NewConn(ws *websocket.Conn, avatars Avatars, logger *log.Logger) *Conn {
	if logger == nil {
		logger = log.Default()
	}
	return &Conn{
		ws:      ws,
		logger:  logger,
		avatars: avatars,
		pending: map[string]chan struct{}{},
		done:    make(chan struct{}),
	}
}

// Done is closed once the read loop has stopped.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) write(m Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(m)
}

func (c *Conn) send(m Message) {
	if err := c.write(m); err != nil && !c.isClosed() {
		c.logger.Debug("ws write failed", "type", m.Type, "err", err)
	}
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Emit implements interview.Events.
func (c *Conn) Emit(e interview.Event) {
	c.send(Message{Type: "event", Event: &e})
}

// Idle implements tts.Indicator.
func (c *Conn) Idle() { c.send(Message{Type: "avatar", Avatar: "idle", Image: c.avatars.Idle}) }

// Speaking implements tts.Indicator.
func (c *Conn) Speaking() {
	c.send(Message{Type: "avatar", Avatar: "speaking", Image: c.avatars.Speaking})
}

// ReportError tells the page about a failure outside the interview flow.
func (c *Conn) ReportError(err error) {
	c.send(Message{Type: "error", Error: err.Error()})
}

// PlayAudio implements tts.PlaybackTransport. It returns when the page
// answers played with the same id.
func (c *Conn) PlayAudio(ctx context.Context, id, url string) error {
	ack := make(chan struct{})
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(Message{Type: "play", ID: id, URL: url}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		c.send(Message{Type: "stop-audio", ID: id})
		return ctx.Err()
	case <-c.done:
		return ErrClosed
	}
}

// OpenMic implements transcript.Microphone: the page starts streaming PCM.
func (c *Conn) OpenMic(ctx context.Context) (<-chan []byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.mic != nil {
		close(c.mic)
	}
	mic := make(chan []byte, 64)
	c.mic = mic
	c.mu.Unlock()

	if err := c.write(Message{Type: "listen"}); err != nil {
		c.CloseMic()
		return nil, err
	}
	return mic, nil
}

func (c *Conn) CloseMic() {
	c.mu.Lock()
	open := c.mic != nil
	if open {
		close(c.mic)
		c.mic = nil
	}
	closed := c.closed
	c.mu.Unlock()
	if open && !closed {
		c.send(Message{Type: "listen-stop"})
	}
}

// Serve reads until the page disconnects, ctx ends, or the page says bye.
// Control messages go to handle; played acks and audio frames are consumed.
func (c *Conn) Serve(ctx context.Context, handle func(Message)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.ws.Close() })
	defer stop()
	defer c.shutdown()

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		if mt == websocket.BinaryMessage {
			c.feedMic(data)
			continue
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			c.logger.Debug("ignoring malformed frame", "err", err)
			continue
		}
		m.Type = strings.ToLower(strings.TrimSpace(m.Type))
		switch m.Type {
		case "played":
			c.ack(m.ID)
		case "bye":
			return nil
		default:
			handle(m)
		}
	}
}

func (c *Conn) feedMic(pcm []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mic == nil {
		return
	}
	select {
	case c.mic <- pcm:
	default:
		c.logger.Debug("mic buffer full, dropping frame")
	}
}

func (c *Conn) ack(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.pending[id]; ok {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Conn) shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.mic != nil {
		close(c.mic)
		c.mic = nil
	}
	c.mu.Unlock()
	close(c.done)
	_ = c.ws.Close()
}
