package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vyomsetu/internal/config"
	"vyomsetu/internal/db"
	"vyomsetu/internal/domain"
	"vyomsetu/internal/engine"
	"vyomsetu/internal/identity"
	"vyomsetu/internal/migrate"
	"vyomsetu/internal/repo"
	"vyomsetu/internal/server"
)

const testSecret = "server-test-secret"

type serverEnv struct {
	TS     *httptest.Server
	Engine engine.Engine
	Now    time.Time
}

func newServerEnv(t *testing.T) *serverEnv {
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
	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	eng := engine.New(conn, cfg)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time { return now }

	handler, err := server.New(server.Config{
		Engine: eng,
		Auth:   server.AuthConfig{JWTSecret: testSecret, DevLogin: true},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return &serverEnv{TS: ts, Engine: eng, Now: now}
}

func (env *serverEnv) seedUser(t *testing.T, id, role, dom string) {
	t.Helper()
	ctx := context.Background()
	u := domain.User{
		ID:        id,
		Name:      "User " + id,
		Email:     id + "@example.org",
		Role:      role,
		Domain:    dom,
		CreatedAt: env.Now.Format(time.RFC3339),
		UpdatedAt: env.Now.Format(time.RFC3339),
	}
	tx, err := env.Engine.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := env.Engine.Repo.InsertUser(ctx, tx, u); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func (env *serverEnv) token(t *testing.T, id string) string {
	t.Helper()
	tok, err := identity.JWT{Secret: testSecret}.Mint(identity.Identity{
		Subject: id,
		Name:    "User " + id,
		Email:   id + "@example.org",
	}, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

// call sends a request and decodes the JSON response into out when non-nil,
// returning the status code.
func (env *serverEnv) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, env.TS.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.TS.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, path, data, err)
		}
	}
	return resp.StatusCode
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestHealthIsOpen(t *testing.T) {
	env := newServerEnv(t)
	if status := env.call(t, http.MethodGet, "/v1/health", "", nil, nil); status != http.StatusOK {
		t.Fatalf("health status = %d", status)
	}
}

func TestMissingAuth(t *testing.T) {
	env := newServerEnv(t)
	var envl errorEnvelope
	status := env.call(t, http.MethodGet, "/v1/me", "", nil, &envl)
	if status != http.StatusUnauthorized || envl.Error.Code != "unauthorized" {
		t.Fatalf("status=%d code=%s, want 401 unauthorized", status, envl.Error.Code)
	}
}

func TestBadToken(t *testing.T) {
	env := newServerEnv(t)
	var envl errorEnvelope
	status := env.call(t, http.MethodGet, "/v1/me", "garbage-token", nil, &envl)
	if status != http.StatusUnauthorized || envl.Error.Code != "invalid_credentials" {
		t.Fatalf("status=%d code=%s, want 401 invalid_credentials", status, envl.Error.Code)
	}
}

func TestDevLoginProvisionsMember(t *testing.T) {
	env := newServerEnv(t)
	var login server.DevLoginResponse
	status := env.call(t, http.MethodPost, "/v1/auth/dev/login",
		"", map[string]any{"email": "new@example.org", "name": "Newcomer"}, &login)
	if status != http.StatusOK || login.Token == "" {
		t.Fatalf("dev login status=%d token=%q", status, login.Token)
	}

	var me server.UserResponse
	status = env.call(t, http.MethodGet, "/v1/me", login.Token, nil, &me)
	if status != http.StatusOK {
		t.Fatalf("me status = %d", status)
	}
	if me.Email != "new@example.org" || me.Role != domain.RoleMember {
		t.Fatalf("provisioned user = %+v", me)
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	leadTok := env.token(t, "lead")
	memberTok := env.token(t, "member")

	var task server.TaskResponse
	status := env.call(t, http.MethodPost, "/v1/tasks", leadTok, map[string]any{
		"title":       "write the launch post",
		"assignee_id": "member",
		"due_date":    env.Now.Add(48 * time.Hour).Format(time.RFC3339),
	}, &task)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	if task.Status != domain.TaskPending || task.Domain != "content" {
		t.Fatalf("created task = %+v", task)
	}

	for _, next := range []string{domain.TaskInProgress, domain.TaskCompleted} {
		status = env.call(t, http.MethodPatch, "/v1/tasks/"+task.ID+"/status", memberTok,
			map[string]any{"status": next}, &task)
		if status != http.StatusOK || task.Status != next {
			t.Fatalf("to %s: status=%d task=%+v", next, status, task)
		}
	}

	var sub server.SubmissionResponse
	status = env.call(t, http.MethodPost, "/v1/tasks/"+task.ID+"/submissions", memberTok,
		map[string]any{"notes": "done"}, &sub)
	if status != http.StatusCreated || sub.Status != domain.SubmissionPending {
		t.Fatalf("submit: status=%d sub=%+v", status, sub)
	}

	status = env.call(t, http.MethodPost, "/v1/submissions/"+sub.ID+"/review", leadTok,
		map[string]any{"comment": "solid", "score": 7.5}, &sub)
	if status != http.StatusOK {
		t.Fatalf("review status = %d", status)
	}
	if sub.QualityScore == nil || *sub.QualityScore != 7.5 {
		t.Fatalf("score not recorded: %+v", sub)
	}

	var ledger server.CreditLedgerResponse
	status = env.call(t, http.MethodGet, "/v1/credits?member_id=member", memberTok, nil, &ledger)
	if status != http.StatusOK {
		t.Fatalf("credits status = %d", status)
	}
	if len(ledger.Items) != 1 || ledger.Total != 75 {
		t.Fatalf("ledger = %+v, want one 75-credit entry", ledger)
	}

	status = env.call(t, http.MethodPatch, "/v1/submissions/"+sub.ID+"/status", leadTok,
		map[string]any{"status": domain.SubmissionApproved}, &sub)
	if status != http.StatusOK || sub.Status != domain.SubmissionApproved {
		t.Fatalf("approve: status=%d sub=%+v", status, sub)
	}
}

func TestAdminCannotDeleteTask(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "admin", domain.RoleAdmin, "")
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")

	var task server.TaskResponse
	env.call(t, http.MethodPost, "/v1/tasks", env.token(t, "lead"), map[string]any{
		"title":       "t",
		"assignee_id": "member",
		"due_date":    "2025-07-01T00:00:00Z",
	}, &task)

	var envl errorEnvelope
	status := env.call(t, http.MethodDelete, "/v1/tasks/"+task.ID, env.token(t, "admin"), nil, &envl)
	if status != http.StatusForbidden || envl.Error.Code != "forbidden" {
		t.Fatalf("status=%d code=%s, want 403 forbidden", status, envl.Error.Code)
	}
	if envl.Error.Details["action"] != "task.delete" {
		t.Fatalf("details = %+v, want action task.delete", envl.Error.Details)
	}

	if status := env.call(t, http.MethodDelete, "/v1/tasks/"+task.ID, env.token(t, "lead"), nil, nil); status != http.StatusNoContent {
		t.Fatalf("lead delete status = %d", status)
	}
}

func TestValidationErrorEnvelope(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")

	var envl errorEnvelope
	status := env.call(t, http.MethodPost, "/v1/tasks", env.token(t, "lead"), map[string]any{
		"title":       "t",
		"assignee_id": "member",
		"due_date":    "next tuesday",
	}, &envl)
	if status != http.StatusBadRequest || envl.Error.Code != "validation_error" {
		t.Fatalf("status=%d code=%s, want 400 validation_error", status, envl.Error.Code)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	var envl errorEnvelope
	status := env.call(t, http.MethodGet, "/v1/tasks/no-such-task", env.token(t, "lead"), nil, &envl)
	if status != http.StatusNotFound || envl.Error.Code != "not_found" {
		t.Fatalf("status=%d code=%s, want 404 not_found", status, envl.Error.Code)
	}
}

func TestConflictEnvelope(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")
	var task server.TaskResponse
	env.call(t, http.MethodPost, "/v1/tasks", env.token(t, "lead"), map[string]any{
		"title":       "t",
		"assignee_id": "member",
		"due_date":    "2025-07-01T00:00:00Z",
	}, &task)

	var envl errorEnvelope
	status := env.call(t, http.MethodPatch, "/v1/tasks/"+task.ID+"/status", env.token(t, "member"),
		map[string]any{"status": domain.TaskCompleted}, &envl)
	if status != http.StatusConflict || envl.Error.Code != "conflict" {
		t.Fatalf("status=%d code=%s, want 409 conflict", status, envl.Error.Code)
	}
}

func TestPresignDependencyFailure(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "member", domain.RoleMember, "content")

	// No presigner is configured, so the route reports the dependency.
	var envl errorEnvelope
	status := env.call(t, http.MethodPost, "/v1/uploads/presign", env.token(t, "member"),
		map[string]any{"file_name": "a.txt"}, &envl)
	if status != http.StatusBadGateway || envl.Error.Code != "dependency_failure" {
		t.Fatalf("status=%d code=%s, want 502 dependency_failure", status, envl.Error.Code)
	}
}

func TestRemindersRequireAdminOrServiceKey(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "admin", domain.RoleAdmin, "")
	env.seedUser(t, "member", domain.RoleMember, "content")

	var envl errorEnvelope
	status := env.call(t, http.MethodPost, "/v1/reminders/run", env.token(t, "member"), nil, &envl)
	if status != http.StatusForbidden {
		t.Fatalf("member sweep status = %d, want 403", status)
	}

	var sweep server.SweepResponse
	status = env.call(t, http.MethodPost, "/v1/reminders/run", env.token(t, "admin"), nil, &sweep)
	if status != http.StatusOK {
		t.Fatalf("admin sweep status = %d", status)
	}

	// A service key bypasses the directory check entirely.
	secret := "vsk_testsecret"
	key := domain.APIKey{
		ID:        "key-1",
		Name:      "cron",
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: env.Now.Format(time.RFC3339),
	}
	if err := env.Engine.Repo.InsertAPIKey(context.Background(), key); err != nil {
		t.Fatalf("insert api key: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, env.TS.URL+"/v1/reminders/run", nil)
	req.Header.Set("X-Api-Key", secret)
	resp, err := env.TS.Client().Do(req)
	if err != nil {
		t.Fatalf("service sweep: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("service sweep status = %d", resp.StatusCode)
	}
}

func TestEventsAdminOnlyWithPagination(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "admin", domain.RoleAdmin, "")
	env.seedUser(t, "lead", domain.RoleDomainLead, "content")
	env.seedUser(t, "member", domain.RoleMember, "content")

	// Generate a handful of events.
	for i := 0; i < 3; i++ {
		var task server.TaskResponse
		status := env.call(t, http.MethodPost, "/v1/tasks", env.token(t, "lead"), map[string]any{
			"title":       fmt.Sprintf("task %d", i),
			"assignee_id": "member",
			"due_date":    "2025-07-01T00:00:00Z",
		}, &task)
		if status != http.StatusCreated {
			t.Fatalf("seed task %d: %d", i, status)
		}
	}

	var page struct {
		Items []server.EventResponse `json:"items"`
		Next  string                 `json:"next_cursor"`
	}
	status := env.call(t, http.MethodGet, "/v1/events?limit=2", env.token(t, "admin"), nil, &page)
	if status != http.StatusOK {
		t.Fatalf("events status = %d", status)
	}
	if len(page.Items) != 2 || page.Next == "" {
		t.Fatalf("first page = %+v, want 2 items and a cursor", page)
	}

	status = env.call(t, http.MethodGet, "/v1/events?limit=2&cursor="+page.Next, env.token(t, "admin"), nil, &page)
	if status != http.StatusOK || len(page.Items) == 0 {
		t.Fatalf("second page status=%d items=%d", status, len(page.Items))
	}

	if status := env.call(t, http.MethodGet, "/v1/events", env.token(t, "member"), nil, nil); status != http.StatusForbidden {
		t.Fatalf("member events status = %d, want 403", status)
	}

	var envl errorEnvelope
	status = env.call(t, http.MethodGet, "/v1/events?cursor=abc", env.token(t, "admin"), nil, &envl)
	if status != http.StatusBadRequest {
		t.Fatalf("bad cursor status = %d, want 400", status)
	}
}

func TestUserDirectoryEndpoints(t *testing.T) {
	env := newServerEnv(t)
	env.seedUser(t, "root", domain.RoleSuperAdmin, "")
	env.seedUser(t, "alice", domain.RoleMember, "")
	rootTok := env.token(t, "root")

	var u server.UserResponse
	status := env.call(t, http.MethodPost, "/v1/users/role", rootTok, map[string]any{
		"email":  "alice@example.org",
		"role":   domain.RoleDomainLead,
		"domain": "content",
	}, &u)
	if status != http.StatusOK || u.Role != domain.RoleDomainLead || u.Domain != "content" {
		t.Fatalf("set role: status=%d user=%+v", status, u)
	}

	// A non-super-admin may read themselves but not administer others.
	aliceTok := env.token(t, "alice")
	status = env.call(t, http.MethodGet, "/v1/users/alice", aliceTok, nil, &u)
	if status != http.StatusOK {
		t.Fatalf("self read status = %d", status)
	}
	var envl errorEnvelope
	status = env.call(t, http.MethodPost, "/v1/users/role", aliceTok, map[string]any{
		"email": "root@example.org",
		"role":  domain.RoleMember,
	}, &envl)
	if status != http.StatusForbidden {
		t.Fatalf("alice set role status = %d, want 403", status)
	}

	var me server.UserResponse
	status = env.call(t, http.MethodPost, "/v1/me/profile", aliceTok, map[string]any{
		"name":   "Alice A",
		"domain": "content",
	}, &me)
	if status != http.StatusOK || !me.ProfileComplete {
		t.Fatalf("complete profile: status=%d me=%+v", status, me)
	}
}
