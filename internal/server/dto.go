package server

import (
	"encoding/json"
	"time"

	"vyomsetu/internal/domain"
	"vyomsetu/internal/engine"
	"vyomsetu/internal/objectstore"
)

// Request payloads

type DevLoginRequest struct {
	Email string `json:"email" format:"email"`
	Name  string `json:"name,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type CompleteProfileRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	College string `json:"college,omitempty"`
	Domain  string `json:"domain"`
}

type SetRoleRequest struct {
	Email  string `json:"email" format:"email"`
	Role   string `json:"role" enum:"super-admin,admin,domain-lead,member"`
	Domain string `json:"domain,omitempty"`
}

type UpdateUserRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	College *string `json:"college,omitempty"`
	Domain  *string `json:"domain,omitempty"`
}

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Domain      string `json:"domain,omitempty"`
	AssigneeID  string `json:"assignee_id"`
	Priority    string `json:"priority,omitempty" enum:"low,medium,high"`
	DueDate     string `json:"due_date" format:"date-time"`
}

type TaskStatusRequest struct {
	Status string `json:"status" enum:"in-progress,completed"`
}

type AttachmentRequest struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type SubmitWorkRequest struct {
	Notes       string              `json:"notes,omitempty"`
	Attachments []AttachmentRequest `json:"attachments,omitempty"`
}

type ReviewRequest struct {
	Comment string   `json:"comment,omitempty"`
	Score   *float64 `json:"score,omitempty" minimum:"0" maximum:"10"`
}

type SubmissionStatusRequest struct {
	Status string `json:"status" enum:"under-review,approved,rejected"`
}

type PresignUploadRequest struct {
	Folder   string `json:"folder,omitempty"`
	FileName string `json:"file_name"`
}

// Response payloads

type UserResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Role            string `json:"role" enum:"super-admin,admin,domain-lead,member"`
	Domain          string `json:"domain,omitempty"`
	Phone           string `json:"phone,omitempty"`
	College         string `json:"college,omitempty"`
	ProfileComplete bool   `json:"profile_complete"`
	CreatedAt       string `json:"created_at" format:"date-time"`
	UpdatedAt       string `json:"updated_at" format:"date-time"`
}

type TaskResponse struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	Domain           string  `json:"domain"`
	AssigneeID       string  `json:"assignee_id"`
	AssigneeName     string  `json:"assignee_name"`
	Priority         string  `json:"priority" enum:"low,medium,high"`
	Status           string  `json:"status" enum:"pending,in-progress,completed,submitted"`
	DueDate          string  `json:"due_date" format:"date-time"`
	Overdue          bool    `json:"overdue"`
	Reminded         bool    `json:"reminded"`
	LastReminderSent *string `json:"last_reminder_sent,omitempty" format:"date-time"`
	CreatedByID      string  `json:"created_by_id"`
	CreatedByName    string  `json:"created_by_name"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

type AttachmentResponse struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type CommentResponse struct {
	LeadID    string `json:"lead_id"`
	LeadName  string `json:"lead_name"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp" format:"date-time"`
}

type SubmissionResponse struct {
	ID             string               `json:"id"`
	TaskID         string               `json:"task_id"`
	MemberID       string               `json:"member_id"`
	MemberName     string               `json:"member_name"`
	Domain         string               `json:"domain"`
	Notes          string               `json:"notes,omitempty"`
	Attachments    []AttachmentResponse `json:"attachments"`
	Status         string               `json:"status" enum:"pending,under-review,approved,rejected"`
	Comments       []CommentResponse    `json:"comments"`
	QualityScore   *float64             `json:"quality_score,omitempty"`
	ScoredByID     *string              `json:"scored_by_id,omitempty"`
	ScoredByName   *string              `json:"scored_by_name,omitempty"`
	ScoredAt       *string              `json:"scored_at,omitempty" format:"date-time"`
	ReviewedAt     *string              `json:"reviewed_at,omitempty" format:"date-time"`
	ReviewedByID   *string              `json:"reviewed_by_id,omitempty"`
	ReviewedByName *string              `json:"reviewed_by_name,omitempty"`
	CreatedAt      string               `json:"created_at" format:"date-time"`
	UpdatedAt      string               `json:"updated_at" format:"date-time"`
}

type CreditResponse struct {
	ID            string  `json:"id"`
	SubmissionID  string  `json:"submission_id"`
	MemberID      string  `json:"member_id"`
	TaskID        string  `json:"task_id"`
	QualityScore  float64 `json:"quality_score"`
	TotalCredits  int     `json:"total_credits"`
	AwardedByID   string  `json:"awarded_by_id"`
	AwardedByName string  `json:"awarded_by_name"`
	AwardedAt     string  `json:"awarded_at" format:"date-time"`
}

type CreditLedgerResponse struct {
	Items []CreditResponse `json:"items"`
	Total int              `json:"total"`
}

type UploadResponse struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

type SweepErrorResponse struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

type SweepResponse struct {
	SentCount  int                  `json:"sent_count"`
	TotalTasks int                  `json:"total_tasks"`
	Errors     []SweepErrorResponse `json:"errors"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func userResponse(u domain.User) UserResponse {
	return UserResponse(u)
}

func mapUsers(in []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(in))
	for _, u := range in {
		out = append(out, userResponse(u))
	}
	return out
}

func taskResponse(t domain.Task, now time.Time) TaskResponse {
	return TaskResponse{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Domain:           t.Domain,
		AssigneeID:       t.AssigneeID,
		AssigneeName:     t.AssigneeName,
		Priority:         t.Priority,
		Status:           t.Status,
		DueDate:          t.DueDate,
		Overdue:          t.Overdue(now),
		Reminded:         t.Reminded,
		LastReminderSent: t.LastReminderSent,
		CreatedByID:      t.CreatedByID,
		CreatedByName:    t.CreatedByName,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func mapTasks(in []domain.Task, now time.Time) []TaskResponse {
	out := make([]TaskResponse, 0, len(in))
	for _, t := range in {
		out = append(out, taskResponse(t, now))
	}
	return out
}

func submissionResponse(s domain.Submission) SubmissionResponse {
	atts := make([]AttachmentResponse, 0, len(s.Attachments))
	for _, a := range s.Attachments {
		atts = append(atts, AttachmentResponse(a))
	}
	comments := make([]CommentResponse, 0, len(s.Comments))
	for _, c := range s.Comments {
		comments = append(comments, CommentResponse(c))
	}
	return SubmissionResponse{
		ID:             s.ID,
		TaskID:         s.TaskID,
		MemberID:       s.MemberID,
		MemberName:     s.MemberName,
		Domain:         s.Domain,
		Notes:          s.Notes,
		Attachments:    atts,
		Status:         s.Status,
		Comments:       comments,
		QualityScore:   s.QualityScore,
		ScoredByID:     s.ScoredByID,
		ScoredByName:   s.ScoredByName,
		ScoredAt:       s.ScoredAt,
		ReviewedAt:     s.ReviewedAt,
		ReviewedByID:   s.ReviewedByID,
		ReviewedByName: s.ReviewedByName,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func mapSubmissions(in []domain.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(in))
	for _, s := range in {
		out = append(out, submissionResponse(s))
	}
	return out
}

func creditResponse(c domain.CreditEntry) CreditResponse {
	return CreditResponse(c)
}

func creditLedgerResponse(in []domain.CreditEntry) CreditLedgerResponse {
	res := CreditLedgerResponse{Items: make([]CreditResponse, 0, len(in))}
	for _, c := range in {
		res.Items = append(res.Items, creditResponse(c))
		res.Total += c.TotalCredits
	}
	return res
}

func uploadResponse(u objectstore.Upload) UploadResponse {
	return UploadResponse(u)
}

func sweepResponse(r engine.SweepResult) SweepResponse {
	errs := make([]SweepErrorResponse, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, SweepErrorResponse(e))
	}
	return SweepResponse{
		SentCount:  r.SentCount,
		TotalTasks: r.TotalTasks,
		Errors:     errs,
	}
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func attachmentsFromRequest(in []AttachmentRequest) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Attachment(a))
	}
	return out
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}
