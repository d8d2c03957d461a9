package lideresdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Lidere.OS HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "v0",
		Timeout:  10 * time.Second,
	}
}

type Member struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Role             string  `json:"role"`
	Active           bool    `json:"active"`
	LastFeedbackDate *string `json:"last_feedback_date,omitempty"`
}

type Task struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	AssigneeID string  `json:"assignee_id"`
	Deadline   string  `json:"deadline"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	MeetingID  *string `json:"meeting_id,omitempty"`
}

type Pillar struct {
	Status      string `json:"status"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Coherence is the four-pillar report.
type Coherence struct {
	Overall string `json:"overall"`
	Pillars struct {
		Rhythm         Pillar `json:"rhythm"`
		Responsibility Pillar `json:"responsibility"`
		Response       Pillar `json:"response"`
		Consistency    Pillar `json:"consistency"`
	} `json:"pillars"`
	WorstPillar string `json:"worst_pillar_key,omitempty"`
}

type Action struct {
	Label  string `json:"label"`
	Target string `json:"target,omitempty"`
}

type Recommendation struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Primary   Action `json:"primary"`
	Secondary Action `json:"secondary"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Login exchanges an email for a bearer token and stores it on the client.
// Servers without a JWT secret return no token and the client stays anonymous.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	body := map[string]any{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "auth/login", body, &resp); err != nil {
		return err
	}
	c.BearerToken = resp.Token
	return nil
}

func (c *Client) CreateMember(ctx context.Context, name, role string) (Member, error) {
	var resp Member
	err := c.do(ctx, http.MethodPost, "members", map[string]any{"name": name, "role": role}, &resp)
	return resp, err
}

func (c *Client) ListMembers(ctx context.Context) ([]Member, error) {
	var resp struct {
		Items []Member `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "members", nil, &resp)
	return resp.Items, err
}

// CreateTask creates a pending task. deadline accepts a date or RFC 3339 time.
func (c *Client) CreateTask(ctx context.Context, title, assigneeID, deadline string) (Task, error) {
	body := map[string]any{
		"title":       title,
		"assignee_id": assigneeID,
		"deadline":    deadline,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp, err
}

// ListTasks lists tasks. view is "", "all", "pending" or "delayed".
func (c *Client) ListTasks(ctx context.Context, view string) ([]Task, error) {
	endpoint := "tasks"
	if view != "" {
		endpoint += "?view=" + url.QueryEscape(view)
	}
	var resp struct {
		Items []Task `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) SetTaskStatus(ctx context.Context, id, status string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("tasks/%s/status", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

func (c *Client) Coherence(ctx context.Context) (Coherence, error) {
	var resp Coherence
	err := c.do(ctx, http.MethodGet, "coherence", nil, &resp)
	return resp, err
}

func (c *Client) Recommendation(ctx context.Context) (Recommendation, error) {
	var resp Recommendation
	err := c.do(ctx, http.MethodGet, "recommendation", nil, &resp)
	return resp, err
}

// Dismiss hides a recommendation and returns the one that replaces it.
func (c *Client) Dismiss(ctx context.Context, id string) (Recommendation, error) {
	var resp Recommendation
	err := c.do(ctx, http.MethodPost, "recommendation/dismiss", map[string]any{"id": id}, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url(endpoint), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) url(endpoint string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base + "/" + strings.TrimLeft(endpoint, "/")
}
