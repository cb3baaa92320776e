// Package authz decides whether an actor may perform an action on a
// resource. Decisions are pure: callers re-read the actor's directory
// record immediately before asking, so revoked roles take effect on the
// next request. Anything not explicitly allowed is denied.
package authz

import (
	"fmt"

	"vyomsetu/internal/domain"
)

type Action string

const (
	CreateTask             Action = "task.create"
	ChangeTaskStatus       Action = "task.change_status"
	DeleteTask             Action = "task.delete"
	SubmitWork             Action = "work.submit"
	CommentSubmission      Action = "submission.comment"
	ScoreSubmission        Action = "submission.score"
	ChangeSubmissionStatus Action = "submission.change_status"
	ReadDomainSubmissions  Action = "submission.read_domain"
	ReadCredits            Action = "credits.read"
	ManageUsers            Action = "users.manage"
	RunReminderSweep       Action = "reminders.sweep"
	PresignUpload          Action = "upload.presign"
	ReadEvents             Action = "events.read"
)

// Resource carries the attributes of the thing being acted on. Only the
// fields relevant to the action need to be set.
type Resource struct {
	Domain       string // owning domain of the task or submission
	AssigneeID   string // task assignee
	MemberID     string // submission author
	TargetUserID string // subject of a directory read
}

// ForbiddenError indicates the actor is not allowed to perform the action.
type ForbiddenError struct {
	Action Action
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("action %s not permitted", e.Action)
}

func deny(action Action) error {
	return ForbiddenError{Action: action}
}

// leadOf reports whether actor is a domain-lead responsible for d.
func leadOf(actor domain.User, d string) bool {
	return actor.Role == domain.RoleDomainLead && actor.Domain != "" && actor.Domain == d
}

func isAdmin(actor domain.User) bool {
	return actor.Role == domain.RoleAdmin || actor.Role == domain.RoleSuperAdmin
}

// Authorize returns nil when actor may perform action on res, and a
// ForbiddenError otherwise.
func Authorize(actor domain.User, action Action, res Resource) error {
	switch action {
	case CreateTask:
		if isAdmin(actor) || leadOf(actor, res.Domain) {
			return nil
		}
	case ChangeTaskStatus:
		if actor.Role == domain.RoleMember && actor.ID == res.AssigneeID {
			return nil
		}
		if leadOf(actor, res.Domain) {
			return nil
		}
	case DeleteTask:
		// Only the responsible lead may delete; admins may not.
		if leadOf(actor, res.Domain) {
			return nil
		}
	case SubmitWork:
		if actor.Role == domain.RoleMember && actor.ID == res.AssigneeID {
			return nil
		}
	case CommentSubmission, ScoreSubmission, ChangeSubmissionStatus, ReadDomainSubmissions:
		if leadOf(actor, res.Domain) {
			return nil
		}
	case ReadCredits:
		if actor.ID != "" && actor.ID == res.MemberID {
			return nil
		}
		if isAdmin(actor) || leadOf(actor, res.Domain) {
			return nil
		}
	case ManageUsers:
		if actor.Role == domain.RoleSuperAdmin {
			return nil
		}
		// Users may read their own record.
		if res.TargetUserID != "" && actor.ID == res.TargetUserID {
			return nil
		}
	case RunReminderSweep, ReadEvents:
		if isAdmin(actor) {
			return nil
		}
	case PresignUpload:
		if actor.ID != "" {
			return nil
		}
	}
	return deny(action)
}
