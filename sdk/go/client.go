package vyomsetusdk

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

// Client is a minimal VyomSetu HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model.
type Task struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Domain       string `json:"domain"`
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	DueDate      string `json:"due_date"`
	Overdue      bool   `json:"overdue"`
}

// Attachment points at an uploaded artifact.
type Attachment struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
}

// Submission represents submitted work under review.
type Submission struct {
	ID           string       `json:"id"`
	TaskID       string       `json:"task_id"`
	MemberID     string       `json:"member_id"`
	Domain       string       `json:"domain"`
	Notes        string       `json:"notes,omitempty"`
	Attachments  []Attachment `json:"attachments"`
	Status       string       `json:"status"`
	QualityScore *float64     `json:"quality_score,omitempty"`
}

// Credit is one ledger entry.
type Credit struct {
	ID           string  `json:"id"`
	SubmissionID string  `json:"submission_id"`
	MemberID     string  `json:"member_id"`
	TaskID       string  `json:"task_id"`
	QualityScore float64 `json:"quality_score"`
	TotalCredits int     `json:"total_credits"`
	AwardedAt    string  `json:"awarded_at"`
}

// CreditLedger is a member's entries with the running total.
type CreditLedger struct {
	Items []Credit `json:"items"`
	Total int      `json:"total"`
}

// Upload is a presigned direct-upload slot.
type Upload struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// SweepResult reports a reminder run.
type SweepResult struct {
	SentCount  int `json:"sent_count"`
	TotalTasks int `json:"total_tasks"`
	Errors     []struct {
		TaskID string `json:"task_id"`
		Error  string `json:"error"`
	} `json:"errors"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, title, assigneeID, due string) (Task, error) {
	body := map[string]any{
		"title":       title,
		"assignee_id": assigneeID,
		"due_date":    due,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", body, &resp)
	return resp, err
}

// SetTaskStatus advances a task.
func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("tasks/%s/status", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// SubmitWork submits work for a completed task.
func (c *Client) SubmitWork(ctx context.Context, taskID, notes string, attachments []Attachment) (Submission, error) {
	body := map[string]any{
		"notes":       notes,
		"attachments": attachments,
	}
	var resp Submission
	endpoint := fmt.Sprintf("tasks/%s/submissions", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Review comments on and/or scores a submission.
func (c *Client) Review(ctx context.Context, submissionID, comment string, score *float64) (Submission, error) {
	body := map[string]any{"comment": comment}
	if score != nil {
		body["score"] = *score
	}
	var resp Submission
	endpoint := fmt.Sprintf("submissions/%s/review", url.PathEscape(submissionID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// SetSubmissionStatus moves a submission through review.
func (c *Client) SetSubmissionStatus(ctx context.Context, submissionID, status string) (Submission, error) {
	var resp Submission
	endpoint := fmt.Sprintf("submissions/%s/status", url.PathEscape(submissionID))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// Credits returns a member's ledger; empty id means the caller.
func (c *Client) Credits(ctx context.Context, memberID string) (CreditLedger, error) {
	endpoint := "credits"
	if memberID != "" {
		endpoint = fmt.Sprintf("credits?member_id=%s", url.QueryEscape(memberID))
	}
	var resp CreditLedger
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// PresignUpload requests a direct-upload slot.
func (c *Client) PresignUpload(ctx context.Context, folder, fileName string) (Upload, error) {
	body := map[string]any{
		"folder":    folder,
		"file_name": fileName,
	}
	var resp Upload
	err := c.do(ctx, http.MethodPost, "uploads/presign", body, &resp)
	return resp, err
}

// RunReminders triggers the overdue-task sweep.
func (c *Client) RunReminders(ctx context.Context) (SweepResult, error) {
	var resp SweepResult
	err := c.do(ctx, http.MethodPost, "reminders/run", nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/v1/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
