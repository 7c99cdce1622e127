package widgets

import (
	"context"
	"fmt"
	"io"

	"github.com/bryan-buckman/nutrihub/internal/webapi"
)

// SessionAPI probes and ends the login session.
type SessionAPI interface {
	Me(ctx context.Context) (*webapi.Session, error)
	Logout(ctx context.Context) error
}

// HeaderAuth toggles the header between a login link and the signed-in user.
type HeaderAuth struct {
	controller
	api SessionAPI

	session *webapi.Session
}

func NewHeaderAuth(api SessionAPI) *HeaderAuth {
	return &HeaderAuth{api: api}
}

// Refresh asks the server who is signed in.
func (h *HeaderAuth) Refresh(ctx context.Context) error {
	if err := h.begin(); err != nil {
		return err
	}
	s, err := h.api.Me(ctx)
	if err == nil {
		h.mu.Lock()
		h.session = s
		h.mu.Unlock()
	}
	h.finish(err, false)
	return err
}

// Logout ends the session and shows the login link.
func (h *HeaderAuth) Logout(ctx context.Context) error {
	if err := h.begin(); err != nil {
		return err
	}
	err := h.api.Logout(ctx)
	if err == nil {
		h.mu.Lock()
		h.session = &webapi.Session{LoggedIn: false}
		h.mu.Unlock()
	}
	h.finish(err, false)
	return err
}

// LoggedIn reports whether the last probe found a signed-in user.
func (h *HeaderAuth) LoggedIn() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session != nil && h.session.LoggedIn
}

// Render writes the header for the current state.
func (h *HeaderAuth) Render(w io.Writer) error {
	s := h.State()
	var line string
	switch s.Status {
	case StatusIdle, StatusLoading:
		line = "..."
	case StatusError:
		line = fmt.Sprintf("Log in (%s) | session check failed: %v", LoginPath, s.Err)
	case StatusRedirect:
		line = redirectLine(s)
	default:
		h.mu.Lock()
		sess := h.session
		h.mu.Unlock()
		if sess == nil || !sess.LoggedIn || sess.User == nil {
			line = "Log in: " + LoginPath
		} else {
			line = fmt.Sprintf("Signed in as %s <%s> | Log out", sess.User.Name, sess.User.Email)
		}
	}
	_, err := fmt.Fprintln(w, line)
	return err
}
