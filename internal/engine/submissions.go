package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"vyomsetu/internal/authz"
	"vyomsetu/internal/domain"
	"vyomsetu/internal/events"
	"vyomsetu/internal/repo"
)

// SubmitOptions carries a member's work for a completed task.
type SubmitOptions struct {
	ActorID     string
	TaskID      string
	Notes       string
	Attachments []domain.Attachment
}

// SubmitWork records the submission and flips the task to submitted in one
// transaction. Either both land or neither does.
func (e Engine) SubmitWork(ctx context.Context, opts SubmitOptions) (domain.Submission, error) {
	t, err := read(ctx, e, func(ctx context.Context) (domain.Task, error) {
		return e.Repo.GetTask(ctx, opts.TaskID)
	})
	if err != nil {
		return domain.Submission{}, err
	}
	actor, err := e.authorize(ctx, opts.ActorID, authz.SubmitWork, authz.Resource{Domain: t.Domain, AssigneeID: t.AssigneeID})
	if err != nil {
		return domain.Submission{}, err
	}
	if t.Status != domain.TaskCompleted {
		return domain.Submission{}, ConflictError{Reason: fmt.Sprintf("task %s is %s, not completed", t.ID, t.Status)}
	}

	now := e.nowRFC3339()
	s := domain.Submission{
		ID:          uuid.NewString(),
		TaskID:      t.ID,
		MemberID:    actor.ID,
		MemberName:  actor.Name,
		Domain:      t.Domain,
		Notes:       opts.Notes,
		Attachments: opts.Attachments,
		Status:      domain.SubmissionPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.Submission{}, err
	}
	defer cancel()
	defer tx.Rollback()

	// The status re-read and the active-submission count sit inside the
	// transaction, so two racing submitters cannot both pass.
	cur, err := e.Repo.GetTaskTx(wctx, tx, t.ID)
	if err != nil {
		return domain.Submission{}, err
	}
	if cur.Status != domain.TaskCompleted {
		return domain.Submission{}, ConflictError{Reason: fmt.Sprintf("task %s is %s, not completed", t.ID, cur.Status)}
	}
	active, err := e.Repo.CountActiveSubmissions(wctx, tx, t.ID)
	if err != nil {
		return domain.Submission{}, err
	}
	if active > 0 {
		return domain.Submission{}, ConflictError{Reason: "task already has an active submission"}
	}
	if err := e.Repo.InsertSubmission(wctx, tx, s); err != nil {
		return domain.Submission{}, err
	}
	if err := e.Repo.UpdateTaskStatus(wctx, tx, t.ID, domain.TaskSubmitted, now); err != nil {
		return domain.Submission{}, err
	}
	if err := e.Events.Append(wctx, tx, "work.submitted", events.KindSubmission, s.ID, actor.ID, events.EventPayload{
		"task_id": t.ID,
	}); err != nil {
		return domain.Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Submission{}, err
	}
	return s, nil
}

// ReviewOptions adds a comment and/or the one-shot quality score.
type ReviewOptions struct {
	ActorID      string
	SubmissionID string
	Comment      string
	Score        *float64
}

// CommentAndScore appends the lead's comment and, when a score is given,
// writes it first-write-wins together with the credit ledger entry. Score
// and credit commit atomically or not at all.
func (e Engine) CommentAndScore(ctx context.Context, opts ReviewOptions) (domain.Submission, error) {
	if opts.Comment == "" && opts.Score == nil {
		return domain.Submission{}, ValidationError{Field: "comment", Reason: "comment or score required"}
	}
	if opts.Score != nil && (*opts.Score < 0 || *opts.Score > 10) {
		return domain.Submission{}, ValidationError{Field: "score", Reason: "must be between 0 and 10"}
	}
	s, err := read(ctx, e, func(ctx context.Context) (domain.Submission, error) {
		return e.Repo.GetSubmission(ctx, opts.SubmissionID)
	})
	if err != nil {
		return domain.Submission{}, err
	}
	action := authz.CommentSubmission
	if opts.Score != nil {
		action = authz.ScoreSubmission
	}
	actor, err := e.authorize(ctx, opts.ActorID, action, authz.Resource{Domain: s.Domain})
	if err != nil {
		return domain.Submission{}, err
	}

	now := e.nowRFC3339()
	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.Submission{}, err
	}
	defer cancel()
	defer tx.Rollback()

	s, err = e.Repo.GetSubmissionTx(wctx, tx, opts.SubmissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if opts.Comment != "" {
		s.Comments = append(s.Comments, domain.Comment{
			LeadID:    actor.ID,
			LeadName:  actor.Name,
			Text:      opts.Comment,
			Timestamp: now,
		})
		if err := e.Repo.AppendComment(wctx, tx, s.ID, s.Comments, now); err != nil {
			return domain.Submission{}, err
		}
		if err := e.Events.Append(wctx, tx, "submission.commented", events.KindSubmission, s.ID, actor.ID, nil); err != nil {
			return domain.Submission{}, err
		}
	}
	if opts.Score != nil {
		won, err := e.Repo.SetQualityScore(wctx, tx, s.ID, *opts.Score, actor.ID, actor.Name, now)
		if err != nil {
			return domain.Submission{}, err
		}
		if !won {
			return domain.Submission{}, ConflictError{Reason: "submission already scored"}
		}
		credit := domain.CreditEntry{
			ID:            uuid.NewString(),
			SubmissionID:  s.ID,
			MemberID:      s.MemberID,
			TaskID:        s.TaskID,
			QualityScore:  *opts.Score,
			TotalCredits:  int(math.Round(*opts.Score * 10)),
			AwardedByID:   actor.ID,
			AwardedByName: actor.Name,
			AwardedAt:     now,
		}
		if err := e.Repo.InsertCredit(wctx, tx, credit); err != nil {
			return domain.Submission{}, err
		}
		if err := e.Events.Append(wctx, tx, "credit.awarded", events.KindCredit, credit.ID, actor.ID, events.EventPayload{
			"submission_id": s.ID,
			"member_id":     s.MemberID,
			"total_credits": credit.TotalCredits,
		}); err != nil {
			return domain.Submission{}, err
		}
		s.QualityScore = opts.Score
		s.ScoredByID = &actor.ID
		s.ScoredByName = &actor.Name
		s.ScoredAt = &now
	}
	if err := tx.Commit(); err != nil {
		return domain.Submission{}, err
	}
	s.UpdatedAt = now
	return s, nil
}

func ensureSubmissionTransition(oldStatus, newStatus string) error {
	if domain.TerminalSubmissionStatus(oldStatus) {
		return ConflictError{Reason: fmt.Sprintf("submission is %s and can no longer change", oldStatus)}
	}
	switch oldStatus {
	case domain.SubmissionPending:
		// Direct pending -> approved/rejected is allowed.
		if newStatus == domain.SubmissionUnderReview || domain.TerminalSubmissionStatus(newStatus) {
			return nil
		}
	case domain.SubmissionUnderReview:
		if domain.TerminalSubmissionStatus(newStatus) {
			return nil
		}
	}
	return ConflictError{Reason: fmt.Sprintf("invalid submission transition %s -> %s", oldStatus, newStatus)}
}

// SetSubmissionStatus drives the review state machine.
func (e Engine) SetSubmissionStatus(ctx context.Context, actorID, submissionID, status string) (domain.Submission, error) {
	if _, err := domain.ParseSubmissionStatus(status); err != nil {
		return domain.Submission{}, ValidationError{Field: "status", Reason: err.Error()}
	}
	s, err := read(ctx, e, func(ctx context.Context) (domain.Submission, error) {
		return e.Repo.GetSubmission(ctx, submissionID)
	})
	if err != nil {
		return domain.Submission{}, err
	}
	actor, err := e.authorize(ctx, actorID, authz.ChangeSubmissionStatus, authz.Resource{Domain: s.Domain})
	if err != nil {
		return domain.Submission{}, err
	}

	now := e.nowRFC3339()
	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.Submission{}, err
	}
	defer cancel()
	defer tx.Rollback()

	s, err = e.Repo.GetSubmissionTx(wctx, tx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if err := ensureSubmissionTransition(s.Status, status); err != nil {
		return domain.Submission{}, err
	}
	if err := e.Repo.UpdateSubmissionStatus(wctx, tx, s.ID, status, actor.ID, actor.Name, now); err != nil {
		return domain.Submission{}, err
	}
	if err := e.Events.Append(wctx, tx, "submission.status_changed", events.KindSubmission, s.ID, actor.ID, events.EventPayload{
		"from": s.Status,
		"to":   status,
	}); err != nil {
		return domain.Submission{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Submission{}, err
	}
	s.Status = status
	s.ReviewedAt = &now
	s.ReviewedByID = &actor.ID
	s.ReviewedByName = &actor.Name
	s.UpdatedAt = now
	return s, nil
}

func (e Engine) GetSubmission(ctx context.Context, actorID, submissionID string) (domain.Submission, error) {
	s, err := read(ctx, e, func(ctx context.Context) (domain.Submission, error) {
		return e.Repo.GetSubmission(ctx, submissionID)
	})
	if err != nil {
		return domain.Submission{}, err
	}
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.Submission{}, err
	}
	if actor.ID == s.MemberID || actor.Role == domain.RoleAdmin || actor.Role == domain.RoleSuperAdmin {
		return s, nil
	}
	if err := authz.Authorize(actor, authz.ReadDomainSubmissions, authz.Resource{Domain: s.Domain}); err != nil {
		return domain.Submission{}, err
	}
	return s, nil
}

func (e Engine) ListSubmissions(ctx context.Context, actorID string, f repo.SubmissionFilters) ([]domain.Submission, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin:
	case domain.RoleDomainLead:
		f.Domain = actor.Domain
	default:
		f.MemberID = actor.ID
	}
	return read(ctx, e, func(ctx context.Context) ([]domain.Submission, error) {
		return e.Repo.ListSubmissions(ctx, f)
	})
}

// ListCredits returns a member's ledger. Members read their own; leads read
// members of their domain; admins read anyone's.
func (e Engine) ListCredits(ctx context.Context, actorID, memberID string) ([]domain.CreditEntry, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if memberID == "" {
		memberID = actor.ID
	}
	res := authz.Resource{MemberID: memberID}
	if actor.ID != memberID {
		member, err := read(ctx, e, func(ctx context.Context) (domain.User, error) {
			return e.Repo.GetUser(ctx, memberID)
		})
		if err != nil {
			return nil, err
		}
		res.Domain = member.Domain
	}
	if err := authz.Authorize(actor, authz.ReadCredits, res); err != nil {
		return nil, err
	}
	return read(ctx, e, func(ctx context.Context) ([]domain.CreditEntry, error) {
		return e.Repo.ListCredits(ctx, repo.CreditFilters{MemberID: memberID})
	})
}
