package live

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chadiek/mock-interview/internal/interview"
)

type fakeController struct {
	mu       sync.Mutex
	calls    []string
	startErr error
}

func (f *fakeController) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeController) Start(username, track string) error {
	f.record("start:" + username + "/" + track)
	return f.startErr
}
func (f *fakeController) Run(ctx context.Context) error { f.record("run"); return nil }
func (f *fakeController) TogglePause() bool             { f.record("pause"); return true }
func (f *fakeController) ToggleMute() bool              { f.record("mute"); return true }
func (f *fakeController) End()                          { f.record("end") }
func (f *fakeController) Evaluate(ctx context.Context) (interview.Report, error) {
	f.record("evaluate")
	return interview.Report{}, nil
}

func TestDispatcher_RoutesMessages(t *testing.T) {
	ctrl := &fakeController{}
	d := NewDispatcher(ctrl, nil)
	h := d.Handler(context.Background())

	h(Message{Type: "start", Username: "Ada", Track: "Software Engineer"})
	d.Wait()
	h(Message{Type: "pause"})
	h(Message{Type: "mute"})
	h(Message{Type: "evaluate"})
	d.Wait()
	h(Message{Type: "end"})
	h(Message{Type: "dance"})

	assert.Equal(t, []string{
		"start:Ada/Software Engineer",
		"run",
		"pause",
		"mute",
		"evaluate",
		"end",
	}, ctrl.calls)
}

func TestDispatcher_RejectedStartDoesNotRun(t *testing.T) {
	ctrl := &fakeController{startErr: errors.New("please enter your name")}
	d := NewDispatcher(ctrl, nil)
	d.Dispatch(context.Background(), Message{Type: "start", Track: "Data Scientist"})
	d.Wait()
	assert.Equal(t, []string{"start:/Data Scientist"}, ctrl.calls)
}
