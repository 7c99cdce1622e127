// Package webapi is a typed client for the site's JSON endpoints.
package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnauthorized is returned for a 401 from any endpoint.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response, or a 2xx with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// Bookmark is one bookmarked nutrition post.
type Bookmark struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	Category      string `json:"category"`
	SourceName    string `json:"sourceName"`
	ImageURL      string `json:"imageUrl"`
	PublishedDate string `json:"publishedDate"`
	BookmarkedAt  string `json:"bookmarkedAt"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	TotalCount  int  `json:"totalCount"`
	TotalPages  int  `json:"totalPages"`
	CurrentPage int  `json:"currentPage"`
	HasPrev     bool `json:"hasPrev"`
	HasNext     bool `json:"hasNext"`
}

// BookmarkPage is the response of the bookmarks listing.
type BookmarkPage struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message,omitempty"`
	Data       []Bookmark `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the response of the auth probe.
type Session struct {
	LoggedIn bool  `json:"loggedIn"`
	User     *User `json:"user"`
}

// ContactRequest is a contact form submission.
type ContactRequest struct {
	Category string `json:"category"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Email    string `json:"email"`
}

// ServiceUsage counts how often the user ran each tool.
type ServiceUsage struct {
	IngredientAnalysis       int `json:"ingredientAnalysis"`
	MealPlan                 int `json:"mealPlan"`
	SupplementRecommendation int `json:"supplementRecommendation"`
	MiniGame                 int `json:"mini-game"`
}

// UsageStats is the response of the personal stats endpoint.
type UsageStats struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message,omitempty"`
	ServiceUsage ServiceUsage `json:"serviceUsage"`
}

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client calls the site API. Token, when set, is sent as a bearer credential.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Bookmarks fetches one page of the user's bookmarks.
func (c *Client) Bookmarks(ctx context.Context, page, limit int) (*BookmarkPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out BookmarkPage
	if err := c.doJSON(ctx, http.MethodGet, "/api/nutrition-info/bookmarks?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &APIError{Status: http.StatusOK, Message: out.Message}
	}
	return &out, nil
}

// Me reports the current session.
func (c *Client) Me(ctx context.Context) (*Session, error) {
	var out Session
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// SubmitContact sends a contact form.
func (c *Client) SubmitContact(ctx context.Context, req ContactRequest) error {
	var out result
	if err := c.doJSON(ctx, http.MethodPost, "/api/contact/submit", req, &out); err != nil {
		return err
	}
	if !out.Success {
		return &APIError{Status: http.StatusOK, Message: out.Message}
	}
	return nil
}

// MyStats fetches the user's service usage counters.
func (c *Client) MyStats(ctx context.Context) (*UsageStats, error) {
	var out UsageStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/stats/my", nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &APIError{Status: http.StatusOK, Message: out.Message}
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode >= 300 {
		var r result
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &r) == nil && r.Message != "" {
			msg = r.Message
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
