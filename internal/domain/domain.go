package domain

import (
	"fmt"
	"time"
)

const (
	RoleSuperAdmin = "super-admin"
	RoleAdmin      = "admin"
	RoleDomainLead = "domain-lead"
	RoleMember     = "member"
)

// ParseRole rejects anything outside the closed role set.
func ParseRole(s string) (string, error) {
	switch s {
	case RoleSuperAdmin, RoleAdmin, RoleDomainLead, RoleMember:
		return s, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

const (
	TaskPending    = "pending"
	TaskInProgress = "in-progress"
	TaskCompleted  = "completed"
	TaskSubmitted  = "submitted"
)

func ParseTaskStatus(s string) (string, error) {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskSubmitted:
		return s, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

func ParsePriority(s string) (string, error) {
	switch s {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return s, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

const (
	SubmissionPending     = "pending"
	SubmissionUnderReview = "under-review"
	SubmissionApproved    = "approved"
	SubmissionRejected    = "rejected"
)

func ParseSubmissionStatus(s string) (string, error) {
	switch s {
	case SubmissionPending, SubmissionUnderReview, SubmissionApproved, SubmissionRejected:
		return s, nil
	}
	return "", fmt.Errorf("unknown submission status %q", s)
}

// TerminalSubmissionStatus reports whether no further review transition
// is allowed from s.
func TerminalSubmissionStatus(s string) bool {
	return s == SubmissionApproved || s == SubmissionRejected
}

type User struct {
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

type Task struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	Domain           string  `json:"domain"`
	AssigneeID       string  `json:"assignee_id"`
	AssigneeName     string  `json:"assignee_name"`
	Priority         string  `json:"priority" enum:"low,medium,high"`
	Status           string  `json:"status" enum:"pending,in-progress,completed,submitted"`
	DueDate          string  `json:"due_date" format:"date-time"`
	Reminded         bool    `json:"reminded"`
	LastReminderSent *string `json:"last_reminder_sent,omitempty" format:"date-time"`
	CreatedByID      string  `json:"created_by_id"`
	CreatedByName    string  `json:"created_by_name"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

// Overdue is derived, never stored: a task past its due date that has not
// yet reached completed.
func (t Task) Overdue(now time.Time) bool {
	if t.Status != TaskPending && t.Status != TaskInProgress {
		return false
	}
	due, err := time.Parse(time.RFC3339, t.DueDate)
	if err != nil {
		return false
	}
	return due.Before(now)
}

type Attachment struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	URL  string `json:"url,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type Comment struct {
	LeadID    string `json:"lead_id"`
	LeadName  string `json:"lead_name"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp" format:"date-time"`
}

type Submission struct {
	ID             string       `json:"id"`
	TaskID         string       `json:"task_id"`
	MemberID       string       `json:"member_id"`
	MemberName     string       `json:"member_name"`
	Domain         string       `json:"domain"`
	Notes          string       `json:"notes,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	Status         string       `json:"status" enum:"pending,under-review,approved,rejected"`
	Comments       []Comment    `json:"comments,omitempty"`
	QualityScore   *float64     `json:"quality_score,omitempty"`
	ScoredByID     *string      `json:"scored_by_id,omitempty"`
	ScoredByName   *string      `json:"scored_by_name,omitempty"`
	ScoredAt       *string      `json:"scored_at,omitempty" format:"date-time"`
	ReviewedAt     *string      `json:"reviewed_at,omitempty" format:"date-time"`
	ReviewedByID   *string      `json:"reviewed_by_id,omitempty"`
	ReviewedByName *string      `json:"reviewed_by_name,omitempty"`
	CreatedAt      string       `json:"created_at" format:"date-time"`
	UpdatedAt      string       `json:"updated_at" format:"date-time"`
}

type CreditEntry struct {
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

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string  `json:"id"`
	Name      string  `json:"name,omitempty"`
	KeyHash   string  `json:"key_hash"`
	CreatedAt string  `json:"created_at" format:"date-time"`
	RevokedAt *string `json:"revoked_at,omitempty" format:"date-time"`
}
