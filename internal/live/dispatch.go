package live

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chadiek/mock-interview/internal/interview"
)

// Controller is the part of interview.Controller a page can drive.
type Controller interface {
	Start(username, track string) error
	Run(ctx context.Context) error
	TogglePause() bool
	ToggleMute() bool
	End()
	Evaluate(ctx context.Context) (interview.Report, error)
}

// Dispatcher turns page control messages into controller calls. Blocking
// calls run on their own goroutines so the read loop keeps serving acks and
// audio frames.
type Dispatcher struct {
	ctrl   Controller
	logger *log.Logger
	wg     sync.WaitGroup
}

func NewDispatcher(ctrl Controller, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{ctrl: ctrl, logger: logger}
}

// Handler returns the callback for Conn.Serve bound to ctx.
func (d *Dispatcher) Handler(ctx context.Context) func(Message) {
	return func(m Message) { d.Dispatch(ctx, m) }
}

func (d *Dispatcher) Dispatch(ctx context.Context, m Message) {
	switch m.Type {
	case "start":
		if err := d.ctrl.Start(m.Username, m.Track); err != nil {
			d.logger.Debug("start rejected", "err", err)
			return
		}
		d.spawn(func() {
			if err := d.ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Warn("interview run ended", "err", err)
			}
		})
	case "pause":
		d.ctrl.TogglePause()
	case "mute":
		d.ctrl.ToggleMute()
	case "end":
		d.ctrl.End()
	case "evaluate":
		d.spawn(func() {
			if _, err := d.ctrl.Evaluate(ctx); err != nil {
				d.logger.Debug("evaluate rejected", "err", err)
			}
		})
	default:
		d.logger.Debug("unknown control message", "type", m.Type)
	}
}

func (d *Dispatcher) spawn(fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn()
	}()
}

// Wait blocks until every spawned call returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }
