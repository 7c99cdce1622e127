// Package webapitest provides an in-memory implementation of the site API
// for tests.
package webapitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/bryan-buckman/nutrihub/internal/webapi"
)

// Server serves the site API from its fields. Lock Mu before changing
// fields while the server is running.
type Server struct {
	*httptest.Server

	Mu           sync.Mutex
	Bookmarks    []webapi.Bookmark
	User         *webapi.User
	Usage        webapi.ServiceUsage
	Contacts     []webapi.ContactRequest
	LoggedOut    bool
	Unauthorized bool
	FailStatus   int
	// Hold, when set, blocks every request until it is closed.
	Hold chan struct{}
}

// NewServer starts a server. Close it when done.
func NewServer() *Server {
	s := &Server{}
	r := chi.NewRouter()
	r.Use(s.middleware)
	r.Get("/api/nutrition-info/bookmarks", s.bookmarks)
	r.Get("/api/auth/me", s.me)
	r.Post("/api/auth/logout", s.logout)
	r.Post("/api/contact/submit", s.contact)
	r.Get("/api/stats/my", s.stats)
	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Mu.Lock()
		hold, unauthorized, status := s.Hold, s.Unauthorized, s.FailStatus
		s.Mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}
		if unauthorized && r.URL.Path != "/api/auth/me" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "login required"})
			return
		}
		if status != 0 {
			writeJSON(w, status, map[string]any{"success": false, "message": "server error"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) bookmarks(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 12
	}

	s.Mu.Lock()
	all := s.Bookmarks
	s.Mu.Unlock()

	total := len(all)
	pages := (total + limit - 1) / limit
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	data := all[start:end]
	if data == nil {
		data = []webapi.Bookmark{}
	}
	writeJSON(w, http.StatusOK, webapi.BookmarkPage{
		Success: true,
		Data:    data,
		Pagination: webapi.Pagination{
			TotalCount:  total,
			TotalPages:  pages,
			CurrentPage: page,
			HasPrev:     page > 1,
			HasNext:     page < pages,
		},
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Unauthorized || s.User == nil || s.LoggedOut {
		writeJSON(w, http.StatusOK, webapi.Session{LoggedIn: false})
		return
	}
	writeJSON(w, http.StatusOK, webapi.Session{LoggedIn: true, User: s.User})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	s.LoggedOut = true
	s.Mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) contact(w http.ResponseWriter, r *http.Request) {
	var req webapi.ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}
	s.Mu.Lock()
	s.Contacts = append(s.Contacts, req)
	s.Mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.Mu.Lock()
	usage := s.Usage
	s.Mu.Unlock()
	writeJSON(w, http.StatusOK, webapi.UsageStats{Success: true, ServiceUsage: usage})
}

// SentContacts returns the contact forms received so far.
func (s *Server) SentContacts() []webapi.ContactRequest {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return append([]webapi.ContactRequest(nil), s.Contacts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
