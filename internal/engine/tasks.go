package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vyomsetu/internal/authz"
	"vyomsetu/internal/domain"
	"vyomsetu/internal/events"
	"vyomsetu/internal/notify"
	"vyomsetu/internal/repo"
)

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ActorID     string
	Title       string
	Description string
	Domain      string
	AssigneeID  string
	Priority    string
	DueDate     string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.Title == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "required"}
	}
	if opts.AssigneeID == "" {
		return domain.Task{}, ValidationError{Field: "assignee_id", Reason: "required"}
	}
	if opts.DueDate == "" {
		return domain.Task{}, ValidationError{Field: "due_date", Reason: "required"}
	}
	if _, err := time.Parse(time.RFC3339, opts.DueDate); err != nil {
		return domain.Task{}, ValidationError{Field: "due_date", Reason: "must be RFC3339"}
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if _, err := domain.ParsePriority(opts.Priority); err != nil {
		return domain.Task{}, ValidationError{Field: "priority", Reason: err.Error()}
	}

	actor, err := e.actor(ctx, opts.ActorID)
	if err != nil {
		return domain.Task{}, err
	}
	// A lead always creates inside their own domain, whatever was asked.
	if actor.Role == domain.RoleDomainLead {
		opts.Domain = actor.Domain
	}
	if opts.Domain == "" {
		return domain.Task{}, ValidationError{Field: "domain", Reason: "required"}
	}
	if e.Config != nil && !e.Config.KnownDomain(opts.Domain) {
		return domain.Task{}, ValidationError{Field: "domain", Reason: "unknown domain"}
	}
	if err := authz.Authorize(actor, authz.CreateTask, authz.Resource{Domain: opts.Domain}); err != nil {
		return domain.Task{}, err
	}

	assignee, err := read(ctx, e, func(ctx context.Context) (domain.User, error) {
		return e.Repo.GetUser(ctx, opts.AssigneeID)
	})
	if err != nil {
		return domain.Task{}, err
	}
	if assignee.Domain != opts.Domain {
		return domain.Task{}, ValidationError{Field: "assignee_id", Reason: "assignee belongs to a different domain"}
	}

	now := e.nowRFC3339()
	t := domain.Task{
		ID:            uuid.NewString(),
		Title:         opts.Title,
		Description:   opts.Description,
		Domain:        opts.Domain,
		AssigneeID:    assignee.ID,
		AssigneeName:  assignee.Name,
		Priority:      opts.Priority,
		Status:        domain.TaskPending,
		DueDate:       opts.DueDate,
		Reminded:      false,
		CreatedByID:   actor.ID,
		CreatedByName: actor.Name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer cancel()
	defer tx.Rollback()
	if err := e.Repo.InsertTask(wctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(wctx, tx, "task.created", events.KindTask, t.ID, actor.ID, events.EventPayload{
		"title":    t.Title,
		"domain":   t.Domain,
		"assignee": t.AssigneeID,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}

	// The record is complete either way; a dead mail relay only costs the
	// notification.
	if e.Mailer != nil && assignee.Email != "" {
		if err := e.Mailer.Send(ctx, notify.AssignmentMessage(t, assignee.Email)); err != nil {
			e.logger().Printf("assignment email for task %s to %s failed: %v", t.ID, assignee.Email, err)
		}
	}
	return t, nil
}

func ensureTaskTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case domain.TaskPending:
		if newStatus == domain.TaskInProgress {
			return nil
		}
	case domain.TaskInProgress:
		if newStatus == domain.TaskCompleted {
			return nil
		}
	}
	return ConflictError{Reason: fmt.Sprintf("invalid task status transition %s -> %s", oldStatus, newStatus)}
}

// UpdateTaskStatus moves a task along pending -> in-progress -> completed.
// The submitted state is reached only through SubmitWork.
func (e Engine) UpdateTaskStatus(ctx context.Context, actorID, taskID, status string) (domain.Task, error) {
	if _, err := domain.ParseTaskStatus(status); err != nil {
		return domain.Task{}, ValidationError{Field: "status", Reason: err.Error()}
	}
	if status == domain.TaskSubmitted {
		return domain.Task{}, ValidationError{Field: "status", Reason: "submitted is set by submitting work"}
	}
	t, err := read(ctx, e, func(ctx context.Context) (domain.Task, error) {
		return e.Repo.GetTask(ctx, taskID)
	})
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := e.authorize(ctx, actorID, authz.ChangeTaskStatus, authz.Resource{Domain: t.Domain, AssigneeID: t.AssigneeID}); err != nil {
		return domain.Task{}, err
	}
	if err := ensureTaskTransition(t.Status, status); err != nil {
		return domain.Task{}, err
	}

	now := e.nowRFC3339()
	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	defer cancel()
	defer tx.Rollback()
	if err := e.Repo.UpdateTaskStatus(wctx, tx, t.ID, status, now); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(wctx, tx, "task.status_changed", events.KindTask, t.ID, actorID, events.EventPayload{
		"from": t.Status,
		"to":   status,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	t.Status = status
	t.UpdatedAt = now
	return t, nil
}

func (e Engine) DeleteTask(ctx context.Context, actorID, taskID string) error {
	t, err := read(ctx, e, func(ctx context.Context) (domain.Task, error) {
		return e.Repo.GetTask(ctx, taskID)
	})
	if err != nil {
		return err
	}
	if _, err := e.authorize(ctx, actorID, authz.DeleteTask, authz.Resource{Domain: t.Domain}); err != nil {
		return err
	}
	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer tx.Rollback()
	if err := e.Repo.DeleteTask(wctx, tx, t.ID); err != nil {
		return err
	}
	if err := e.Events.Append(wctx, tx, "task.deleted", events.KindTask, t.ID, actorID, events.EventPayload{"title": t.Title}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) GetTask(ctx context.Context, actorID, taskID string) (domain.Task, error) {
	if _, err := e.actor(ctx, actorID); err != nil {
		return domain.Task{}, err
	}
	return read(ctx, e, func(ctx context.Context) (domain.Task, error) {
		return e.Repo.GetTask(ctx, taskID)
	})
}

// ListTasks narrows the filter to what the caller may see before querying.
func (e Engine) ListTasks(ctx context.Context, actorID string, f repo.TaskFilters) ([]domain.Task, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin:
	case domain.RoleDomainLead:
		f.Domain = actor.Domain
	default:
		f.AssigneeID = actor.ID
	}
	return read(ctx, e, func(ctx context.Context) ([]domain.Task, error) {
		return e.Repo.ListTasks(ctx, f)
	})
}
