// Package widgets holds the page controllers behind the site's interactive
// panels. Each controller fetches one endpoint, tracks a small state machine
// and renders its current state as text.
package widgets

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bryan-buckman/nutrihub/internal/webapi"
)

// ErrBusy is returned when a request is made while another is in flight.
// The new request is dropped.
var ErrBusy = errors.New("request already in flight")

// LoginPath is where unauthenticated users are sent.
const LoginPath = "/login"

// Status is the phase a controller is in.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLoading  Status = "loading"
	StatusSuccess  Status = "success"
	StatusEmpty    Status = "empty"
	StatusError    Status = "error"
	StatusRedirect Status = "redirect"
)

// State is a snapshot of a controller.
type State struct {
	Status   Status
	Err      error
	Redirect string
	Toast    string
}

// controller carries the state machine and in-flight guard shared by all widgets.
type controller struct {
	busy  atomic.Bool
	mu    sync.Mutex
	state State
}

// begin claims the in-flight flag and moves to loading.
func (c *controller) begin() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	c.set(State{Status: StatusLoading})
	return nil
}

// finish releases the flag and records the outcome of a request.
func (c *controller) finish(err error, empty bool) {
	c.finishWithToast(err, empty, "")
}

// finishWithToast is finish with a message attached to the final state.
// The state is written before the flag is released.
func (c *controller) finishWithToast(err error, empty bool, toast string) {
	defer c.busy.Store(false)
	var s State
	switch {
	case errors.Is(err, webapi.ErrUnauthorized):
		s = State{Status: StatusRedirect, Err: err, Redirect: LoginPath}
	case err != nil:
		s = State{Status: StatusError, Err: err}
	case empty:
		s = State{Status: StatusEmpty}
	default:
		s = State{Status: StatusSuccess}
	}
	s.Toast = toast
	c.set(s)
}

func (c *controller) set(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State returns the current state.
func (c *controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	if s.Status == "" {
		s.Status = StatusIdle
	}
	return s
}

// Busy reports whether a request is in flight.
func (c *controller) Busy() bool {
	return c.busy.Load()
}

func redirectLine(s State) string {
	return fmt.Sprintf("Please log in to continue: %s", s.Redirect)
}
