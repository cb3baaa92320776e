package engine

import (
	"context"
	"errors"
	"time"

	"vyomsetu/internal/domain"
	"vyomsetu/internal/notify"
	"vyomsetu/internal/repo"
)

// SweepError records a single task's failure during the reminder sweep.
type SweepError struct {
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

// SweepResult summarizes one reminder sweep run.
type SweepResult struct {
	SentCount  int          `json:"sent_count"`
	TotalTasks int          `json:"total_tasks"`
	Errors     []SweepError `json:"errors"`
}

// SendReminders emails the assignee of every overdue, un-reminded task. One
// task's failure never stops the rest; reminded is stamped only after its
// email actually went out. Callers gate access before invoking.
func (e Engine) SendReminders(ctx context.Context) (SweepResult, error) {
	now := e.now().UTC()
	candidates, err := read(ctx, e, func(ctx context.Context) ([]domain.Task, error) {
		return e.Repo.ListReminderCandidates(ctx, now.Format(time.RFC3339))
	})
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{TotalTasks: len(candidates), Errors: []SweepError{}}
	for _, t := range candidates {
		if err := e.remind(ctx, t, now); err != nil {
			e.logger().Printf("reminder for task %s failed: %v", t.ID, err)
			result.Errors = append(result.Errors, SweepError{TaskID: t.ID, Error: err.Error()})
			continue
		}
		result.SentCount++
	}
	return result, nil
}

func (e Engine) remind(ctx context.Context, t domain.Task, now time.Time) error {
	assignee, err := read(ctx, e, func(ctx context.Context) (domain.User, error) {
		return e.Repo.GetUser(ctx, t.AssigneeID)
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errors.New("assignee not found")
		}
		return err
	}
	if assignee.Email == "" {
		return errors.New("assignee has no email address")
	}
	if e.Mailer == nil {
		return errors.New("mail dispatcher not configured")
	}
	if err := e.Mailer.Send(ctx, notify.ReminderMessage(t, assignee.Email)); err != nil {
		return err
	}
	return e.Repo.MarkTaskReminded(ctx, t.ID, now.Format(time.RFC3339))
}
