package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"vyomsetu/internal/authz"
	"vyomsetu/internal/config"
	"vyomsetu/internal/db"
	"vyomsetu/internal/domain"
	"vyomsetu/internal/engine"
	"vyomsetu/internal/migrate"
	"vyomsetu/internal/notify"
	"vyomsetu/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return now }
	return &testEnv{Engine: eng, Ctx: context.Background(), Now: now}
}

func (env *testEnv) seedUser(t *testing.T, id, role, dom string) domain.User {
	t.Helper()
	u := domain.User{
		ID:        id,
		Name:      "User " + id,
		Email:     id + "@example.org",
		Role:      role,
		Domain:    dom,
		CreatedAt: env.Now.Format(time.RFC3339),
		UpdatedAt: env.Now.Format(time.RFC3339),
	}
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := env.Engine.Repo.InsertUser(env.Ctx, tx, u); err != nil {
		t.Fatalf("insert user %s: %v", id, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return u
}

func (env *testEnv) seedTask(t *testing.T, leadID, assigneeID, dom, due string) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ActorID:    leadID,
		Title:      "write the launch post",
		Domain:     dom,
		AssigneeID: assigneeID,
		DueDate:    due,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

// submittedTask walks a fresh task all the way to submitted and returns the
// submission.
func (env *testEnv) submittedTask(t *testing.T, leadID, memberID, dom string) (domain.Task, domain.Submission) {
	t.Helper()
	task := env.seedTask(t, leadID, memberID, dom, env.Now.Add(48*time.Hour).Format(time.RFC3339))
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, memberID, task.ID, domain.TaskInProgress); err != nil {
		t.Fatalf("to in-progress: %v", err)
	}
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, memberID, task.ID, domain.TaskCompleted); err != nil {
		t.Fatalf("to completed: %v", err)
	}
	sub, err := env.Engine.SubmitWork(env.Ctx, engine.SubmitOptions{
		ActorID: memberID,
		TaskID:  task.ID,
		Notes:   "done, draft attached",
	})
	if err != nil {
		t.Fatalf("submit work: %v", err)
	}
	return task, sub
}

func TestCreateTaskStartsPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")

	task := env.seedTask(t, "lead", "member", "content", env.Now.Add(24*time.Hour).Format(time.RFC3339))
	if task.Status != domain.TaskPending {
		t.Fatalf("new task status = %s, want pending", task.Status)
	}
	if task.Reminded {
		t.Fatalf("new task already marked reminded")
	}
	if task.Priority != domain.PriorityMedium {
		t.Fatalf("default priority = %s, want medium", task.Priority)
	}
	if task.AssigneeName == "" {
		t.Fatalf("assignee name not denormalized onto task")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "designer", domain.RoleMember, "design")

	cases := []struct {
		name string
		opts engine.TaskCreateOptions
	}{
		{"missing title", engine.TaskCreateOptions{ActorID: "lead", AssigneeID: "designer", DueDate: "2025-07-01T00:00:00Z"}},
		{"missing due date", engine.TaskCreateOptions{ActorID: "lead", Title: "t", AssigneeID: "designer"}},
		{"bad due date", engine.TaskCreateOptions{ActorID: "lead", Title: "t", AssigneeID: "designer", DueDate: "tomorrow"}},
		{"bad priority", engine.TaskCreateOptions{ActorID: "lead", Title: "t", AssigneeID: "designer", DueDate: "2025-07-01T00:00:00Z", Priority: "urgent"}},
		{"cross-domain assignee", engine.TaskCreateOptions{ActorID: "lead", Title: "t", AssigneeID: "designer", DueDate: "2025-07-01T00:00:00Z"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Engine.CreateTask(env.Ctx, tc.opts)
			var verr engine.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestLeadCreatesInOwnDomainOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")

	// The requested domain is overridden by the lead's own.
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ActorID:    "lead",
		Title:      "t",
		Domain:     "design",
		AssigneeID: "member",
		DueDate:    "2025-07-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Domain != "content" {
		t.Fatalf("task domain = %s, want content", task.Domain)
	}
}

func TestMemberCannotCreateTask(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "member", domain.RoleMember, "content")
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ActorID:    "member",
		Title:      "t",
		Domain:     "content",
		AssigneeID: "member",
		DueDate:    "2025-07-01T00:00:00Z",
	})
	var ferr authz.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("err = %v, want ForbiddenError", err)
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	task := env.seedTask(t, "lead", "member", "content", "2025-07-01T00:00:00Z")

	// Skipping in-progress is a conflict.
	_, err := env.Engine.UpdateTaskStatus(env.Ctx, "member", task.ID, domain.TaskCompleted)
	var cerr engine.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("pending -> completed err = %v, want ConflictError", err)
	}

	task, err = env.Engine.UpdateTaskStatus(env.Ctx, "member", task.ID, domain.TaskInProgress)
	if err != nil || task.Status != domain.TaskInProgress {
		t.Fatalf("to in-progress: %v", err)
	}
	task, err = env.Engine.UpdateTaskStatus(env.Ctx, "member", task.ID, domain.TaskCompleted)
	if err != nil || task.Status != domain.TaskCompleted {
		t.Fatalf("to completed: %v", err)
	}

	// Submitted is reserved for SubmitWork.
	_, err = env.Engine.UpdateTaskStatus(env.Ctx, "member", task.ID, domain.TaskSubmitted)
	var verr engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("direct submitted err = %v, want ValidationError", err)
	}
}

func TestOnlyAssigneeAdvancesTask(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	env.seedUser(t, "other", domain.RoleMember, "content")
	task := env.seedTask(t, "lead", "member", "content", "2025-07-01T00:00:00Z")

	_, err := env.Engine.UpdateTaskStatus(env.Ctx, "other", task.ID, domain.TaskInProgress)
	var ferr authz.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("other member advanced the task: %v", err)
	}
	// The responsible lead may advance it too.
	if _, err := env.Engine.UpdateTaskStatus(env.Ctx, "lead", task.ID, domain.TaskInProgress); err != nil {
		t.Fatalf("lead advance: %v", err)
	}
}

func TestDeleteTaskOnlyLead(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", domain.RoleSuperAdmin, "")
	env.seedUser(t, "admin", domain.RoleAdmin, "")
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "otherlead", domain.RoleDomainLead, "design")
	env.seedUser(t, "member", domain.RoleMember, "content")

	cases := []struct {
		actor string
		want  bool
	}{
		{"root", false},
		{"admin", false},
		{"otherlead", false},
		{"member", false},
		{"lead", true},
	}
	for _, tc := range cases {
		t.Run(tc.actor, func(t *testing.T) {
			task := env.seedTask(t, "lead", "member", "content", "2025-07-01T00:00:00Z")
			err := env.Engine.DeleteTask(env.Ctx, tc.actor, task.ID)
			if tc.want && err != nil {
				t.Fatalf("delete by %s: %v", tc.actor, err)
			}
			if !tc.want {
				var ferr authz.ForbiddenError
				if !errors.As(err, &ferr) {
					t.Fatalf("delete by %s err = %v, want ForbiddenError", tc.actor, err)
				}
			}
		})
	}
}

func TestSubmitWorkRequiresCompleted(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	task := env.seedTask(t, "lead", "member", "content", "2025-07-01T00:00:00Z")

	_, err := env.Engine.SubmitWork(env.Ctx, engine.SubmitOptions{ActorID: "member", TaskID: task.ID})
	var cerr engine.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("submit on pending task err = %v, want ConflictError", err)
	}
}

func TestSubmitWorkFlipsTaskAndBlocksSecond(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	task, sub := env.submittedTask(t, "lead", "member", "content")

	if sub.Status != domain.SubmissionPending {
		t.Fatalf("submission status = %s, want pending", sub.Status)
	}
	got, err := env.Engine.GetTask(env.Ctx, "lead", task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Status != domain.TaskSubmitted {
		t.Fatalf("task status after submit = %s, want submitted", got.Status)
	}

	_, err = env.Engine.SubmitWork(env.Ctx, engine.SubmitOptions{ActorID: "member", TaskID: task.ID})
	var cerr engine.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("second submission err = %v, want ConflictError", err)
	}
}

func TestScoreWritesCreditOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	_, sub := env.submittedTask(t, "lead", "member", "content")

	score := 7.5
	scored, err := env.Engine.CommentAndScore(env.Ctx, engine.ReviewOptions{
		ActorID:      "lead",
		SubmissionID: sub.ID,
		Comment:      "solid work",
		Score:        &score,
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if scored.QualityScore == nil || *scored.QualityScore != 7.5 {
		t.Fatalf("quality score = %v, want 7.5", scored.QualityScore)
	}

	ledger, err := env.Engine.ListCredits(env.Ctx, "member", "member")
	if err != nil {
		t.Fatalf("list credits: %v", err)
	}
	if len(ledger) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(ledger))
	}
	if ledger[0].TotalCredits != 75 {
		t.Fatalf("credits = %d, want 75", ledger[0].TotalCredits)
	}

	// The second score loses and leaves the ledger alone.
	again := 9.0
	_, err = env.Engine.CommentAndScore(env.Ctx, engine.ReviewOptions{
		ActorID:      "lead",
		SubmissionID: sub.ID,
		Score:        &again,
	})
	var cerr engine.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("second score err = %v, want ConflictError", err)
	}
	ledger, err = env.Engine.ListCredits(env.Ctx, "member", "member")
	if err != nil {
		t.Fatalf("reread credits: %v", err)
	}
	if len(ledger) != 1 || ledger[0].TotalCredits != 75 {
		t.Fatalf("ledger changed after losing score: %+v", ledger)
	}
}

func TestScoreRounding(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")

	cases := []struct {
		score float64
		want  int
	}{
		{0, 0},
		{0.04, 0},
		{6.66, 67},
		{10, 100},
	}
	for i, tc := range cases {
		t.Run(fmt.Sprintf("score_%v", tc.score), func(t *testing.T) {
			memberID := fmt.Sprintf("m%d", i)
			env.seedUser(t, memberID, domain.RoleMember, "content")
			_, sub := env.submittedTask(t, "lead", memberID, "content")
			score := tc.score
			_, err := env.Engine.CommentAndScore(env.Ctx, engine.ReviewOptions{ActorID: "lead", SubmissionID: sub.ID, Score: &score})
			if err != nil {
				t.Fatalf("score: %v", err)
			}
			ledger, err := env.Engine.ListCredits(env.Ctx, memberID, memberID)
			if err != nil || len(ledger) != 1 {
				t.Fatalf("ledger: %v %+v", err, ledger)
			}
			if ledger[0].TotalCredits != tc.want {
				t.Fatalf("credits = %d, want %d", ledger[0].TotalCredits, tc.want)
			}
		})
	}
}

func TestScoreOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	_, sub := env.submittedTask(t, "lead", "member", "content")

	for _, bad := range []float64{-0.1, 10.5} {
		score := bad
		_, err := env.Engine.CommentAndScore(env.Ctx, engine.ReviewOptions{ActorID: "lead", SubmissionID: sub.ID, Score: &score})
		var verr engine.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("score %v err = %v, want ValidationError", bad, err)
		}
	}
}

func TestCrossDomainReviewForbidden(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "otherlead", domain.RoleDomainLead, "design")
	env.seedUser(t, "member", domain.RoleMember, "content")
	_, sub := env.submittedTask(t, "lead", "member", "content")

	_, err := env.Engine.CommentAndScore(env.Ctx, engine.ReviewOptions{
		ActorID:      "otherlead",
		SubmissionID: sub.ID,
		Comment:      "not my domain",
	})
	var ferr authz.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("cross-domain comment err = %v, want ForbiddenError", err)
	}
	got, err := env.Engine.GetSubmission(env.Ctx, "lead", sub.ID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got.Comments) != 0 {
		t.Fatalf("comment landed despite denied review: %+v", got.Comments)
	}
}

func TestSubmissionReviewTransitions(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	env.seedUser(t, "member2", domain.RoleMember, "content")

	// pending -> under-review -> approved
	_, sub := env.submittedTask(t, "lead", "member", "content")
	s, err := env.Engine.SetSubmissionStatus(env.Ctx, "lead", sub.ID, domain.SubmissionUnderReview)
	if err != nil || s.Status != domain.SubmissionUnderReview {
		t.Fatalf("to under-review: %v", err)
	}
	s, err = env.Engine.SetSubmissionStatus(env.Ctx, "lead", s.ID, domain.SubmissionApproved)
	if err != nil || s.Status != domain.SubmissionApproved {
		t.Fatalf("to approved: %v", err)
	}
	if s.ReviewedByID == nil || *s.ReviewedByID != "lead" {
		t.Fatalf("reviewer not stamped: %+v", s)
	}

	// Terminal states never move again.
	_, err = env.Engine.SetSubmissionStatus(env.Ctx, "lead", s.ID, domain.SubmissionUnderReview)
	var cerr engine.ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("reopen approved err = %v, want ConflictError", err)
	}

	// Direct pending -> rejected is allowed.
	_, sub2 := env.submittedTask(t, "lead", "member2", "content")
	s, err = env.Engine.SetSubmissionStatus(env.Ctx, "lead", sub2.ID, domain.SubmissionRejected)
	if err != nil || s.Status != domain.SubmissionRejected {
		t.Fatalf("direct reject: %v", err)
	}
}

func TestCreditVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin", domain.RoleAdmin, "")
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "otherlead", domain.RoleDomainLead, "design")
	env.seedUser(t, "member", domain.RoleMember, "content")
	env.seedUser(t, "peer", domain.RoleMember, "content")
	_, sub := env.submittedTask(t, "lead", "member", "content")
	score := 8.0
	if _, err := env.Engine.CommentAndScore(env.Ctx, engine.ReviewOptions{ActorID: "lead", SubmissionID: sub.ID, Score: &score}); err != nil {
		t.Fatalf("score: %v", err)
	}

	for _, actor := range []string{"member", "lead", "admin"} {
		if _, err := env.Engine.ListCredits(env.Ctx, actor, "member"); err != nil {
			t.Fatalf("%s reading member's ledger: %v", actor, err)
		}
	}
	for _, actor := range []string{"peer", "otherlead"} {
		_, err := env.Engine.ListCredits(env.Ctx, actor, "member")
		var ferr authz.ForbiddenError
		if !errors.As(err, &ferr) {
			t.Fatalf("%s read member's ledger: %v", actor, err)
		}
	}
}

// flakyMailer fails delivery for one recipient and records the rest.
type flakyMailer struct {
	failFor string
	sent    []notify.Message
}

func (m *flakyMailer) Send(ctx context.Context, msg notify.Message) error {
	if msg.To == m.failFor {
		return errors.New("relay refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestReminderSweep(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "alice", domain.RoleMember, "content")
	env.seedUser(t, "bob", domain.RoleMember, "content")
	env.seedUser(t, "carol", domain.RoleMember, "content")

	overdue := env.Now.Add(-24 * time.Hour).Format(time.RFC3339)
	future := env.Now.Add(24 * time.Hour).Format(time.RFC3339)
	t1 := env.seedTask(t, "lead", "alice", "content", overdue)
	t2 := env.seedTask(t, "lead", "bob", "content", overdue)
	env.seedTask(t, "lead", "carol", "content", future) // not yet due

	mailer := &flakyMailer{failFor: "bob@example.org"}
	env.Engine.Mailer = mailer

	res, err := env.Engine.SendReminders(env.Ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.TotalTasks != 2 {
		t.Fatalf("total tasks = %d, want 2", res.TotalTasks)
	}
	if res.SentCount != 1 {
		t.Fatalf("sent = %d, want 1", res.SentCount)
	}
	if len(res.Errors) != 1 || res.Errors[0].TaskID != t2.ID {
		t.Fatalf("errors = %+v, want one for %s", res.Errors, t2.ID)
	}

	// The delivered task is stamped; the failed one stays eligible.
	got1, _ := env.Engine.GetTask(env.Ctx, "lead", t1.ID)
	got2, _ := env.Engine.GetTask(env.Ctx, "lead", t2.ID)
	if !got1.Reminded {
		t.Fatalf("delivered task not marked reminded")
	}
	if got2.Reminded {
		t.Fatalf("failed task marked reminded")
	}

	// A second sweep retries only the failure.
	mailer.failFor = ""
	res, err = env.Engine.SendReminders(env.Ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if res.TotalTasks != 1 || res.SentCount != 1 {
		t.Fatalf("second sweep = %+v, want one retried send", res)
	}
}

func TestSweepWithoutMailer(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "alice", domain.RoleMember, "content")
	env.seedTask(t, "lead", "alice", "content", env.Now.Add(-time.Hour).Format(time.RFC3339))
	env.Engine.Mailer = nil

	res, err := env.Engine.SendReminders(env.Ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.SentCount != 0 || len(res.Errors) != 1 {
		t.Fatalf("sweep without mailer = %+v", res)
	}
}

type stubPresigner struct {
	lastKey string
	err     error
}

func (p *stubPresigner) PresignPut(ctx context.Context, key string, ttl time.Duration) (string, error) {
	p.lastKey = key
	if p.err != nil {
		return "", p.err
	}
	return "https://bucket.example.com/" + key + "?sig=abc", nil
}

func TestPresignUpload(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "member", domain.RoleMember, "content")
	ps := &stubPresigner{}
	env.Engine.Presigner = ps

	up, err := env.Engine.PresignUpload(env.Ctx, "member", "submissions", "final report.pdf")
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if !strings.HasPrefix(up.Key, "submissions/") {
		t.Fatalf("key = %s, want submissions/ prefix", up.Key)
	}
	if !strings.HasSuffix(up.Key, "-final-report.pdf") {
		t.Fatalf("key = %s, want sanitized filename suffix", up.Key)
	}
	if up.ExpiresIn != 600 {
		t.Fatalf("ttl = %d, want 600", up.ExpiresIn)
	}
	if up.URL == "" {
		t.Fatalf("empty presigned url")
	}
}

func TestPresignUploadDependencyFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "member", domain.RoleMember, "content")
	env.Engine.Presigner = &stubPresigner{err: errors.New("bucket unreachable")}

	_, err := env.Engine.PresignUpload(env.Ctx, "member", "submissions", "a.txt")
	var derr engine.DependencyError
	if !errors.As(err, &derr) {
		t.Fatalf("err = %v, want DependencyError", err)
	}
}

func TestPresignUploadUnknownActor(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Presigner = &stubPresigner{}
	_, err := env.Engine.PresignUpload(env.Ctx, "ghost", "submissions", "a.txt")
	var ferr authz.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("unknown actor err = %v, want ForbiddenError", err)
	}
}

func TestRoleChangeTakesEffectImmediately(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "root", domain.RoleSuperAdmin, "")
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	task := env.seedTask(t, "lead", "member", "content", "2025-07-01T00:00:00Z")

	// Demote the lead, then re-check: the next decision sees the new role.
	if _, err := env.Engine.SetUserRole(env.Ctx, engine.SetRoleOptions{
		ActorID: "root",
		Email:   "lead@example.org",
		Role:    domain.RoleMember,
		Domain:  "content",
	}); err != nil {
		t.Fatalf("demote: %v", err)
	}
	err := env.Engine.DeleteTask(env.Ctx, "lead", task.ID)
	var ferr authz.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("demoted lead still deleted the task: %v", err)
	}
}

func TestListTasksScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin", domain.RoleAdmin, "")
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "dlead", domain.RoleDomainLead, "design")
	env.seedUser(t, "member", domain.RoleMember, "content")
	env.seedUser(t, "peer", domain.RoleMember, "content")
	env.seedUser(t, "designer", domain.RoleMember, "design")

	env.seedTask(t, "lead", "member", "content", "2025-07-01T00:00:00Z")
	env.seedTask(t, "lead", "peer", "content", "2025-07-01T00:00:00Z")
	env.seedTask(t, "dlead", "designer", "design", "2025-07-01T00:00:00Z")

	count := func(actor string) int {
		tasks, err := env.Engine.ListTasks(env.Ctx, actor, repo.TaskFilters{})
		if err != nil {
			t.Fatalf("list as %s: %v", actor, err)
		}
		return len(tasks)
	}
	if n := count("admin"); n != 3 {
		t.Fatalf("admin sees %d tasks, want 3", n)
	}
	if n := count("lead"); n != 2 {
		t.Fatalf("content lead sees %d tasks, want 2", n)
	}
	if n := count("member"); n != 1 {
		t.Fatalf("member sees %d tasks, want 1", n)
	}
}

func TestListEventsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "admin", domain.RoleAdmin, "")
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	env.seedTask(t, "lead", "member", "content", "2025-07-01T00:00:00Z")

	evts, err := env.Engine.ListEvents(env.Ctx, "admin", 50, 0, "", "", "")
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evts) == 0 {
		t.Fatalf("no events recorded for task creation")
	}
	_, err = env.Engine.ListEvents(env.Ctx, "lead", 50, 0, "", "", "")
	var ferr authz.ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("lead read events: %v", err)
	}
}

func TestOverdueDerived(t *testing.T) {
	env := newTestEnv(t)
	now := env.Now
	task := domain.Task{Status: domain.TaskPending, DueDate: now.Add(-time.Minute).Format(time.RFC3339)}
	if !task.Overdue(now) {
		t.Fatalf("past-due pending task not overdue")
	}
	task.Status = domain.TaskCompleted
	if task.Overdue(now) {
		t.Fatalf("completed task reported overdue")
	}
	task.Status = domain.TaskInProgress
	task.DueDate = now.Add(time.Minute).Format(time.RFC3339)
	if task.Overdue(now) {
		t.Fatalf("future-due task reported overdue")
	}
}
