package engine

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"vyomsetu/internal/authz"
	"vyomsetu/internal/config"
	"vyomsetu/internal/domain"
	"vyomsetu/internal/events"
	"vyomsetu/internal/notify"
	"vyomsetu/internal/objectstore"
	"vyomsetu/internal/repo"
)

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	Mailer    notify.Dispatcher
	Presigner objectstore.Presigner
	Logger    *log.Logger
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Mailer: notify.Discard{},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e Engine) readTimeout() time.Duration {
	if e.Config != nil {
		if d, err := e.Config.ReadTimeout(); err == nil {
			return d
		}
	}
	return 3 * time.Second
}

func (e Engine) writeTimeout() time.Duration {
	if e.Config != nil {
		if d, err := e.Config.WriteTimeout(); err == nil {
			return d
		}
	}
	return 5 * time.Second
}

// read runs an idempotent store read under the configured timeout and
// retries once on a transient failure. Writes never come through here.
func read[T any](ctx context.Context, e Engine, fn func(context.Context) (T, error)) (T, error) {
	attempt := func() (T, error) {
		rctx, cancel := context.WithTimeout(ctx, e.readTimeout())
		defer cancel()
		return fn(rctx)
	}
	v, err := attempt()
	if err == nil || errors.Is(err, repo.ErrNotFound) || ctx.Err() != nil {
		return v, err
	}
	return attempt()
}

// beginWrite opens a transaction with the write deadline applied. The
// returned cancel must run after commit or rollback.
func (e Engine) beginWrite(ctx context.Context) (*sql.Tx, context.Context, context.CancelFunc, error) {
	wctx, cancel := context.WithTimeout(ctx, e.writeTimeout())
	tx, err := e.DB.BeginTx(wctx, nil)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return tx, wctx, cancel, nil
}

// actor re-reads the caller's directory record so role changes take effect
// on the decision that follows, not on some cached claim.
func (e Engine) actor(ctx context.Context, actorID string) (domain.User, error) {
	return read(ctx, e, func(ctx context.Context) (domain.User, error) {
		return e.Repo.GetUser(ctx, actorID)
	})
}

// authorize loads the actor and applies the access decision.
func (e Engine) authorize(ctx context.Context, actorID string, action authz.Action, res authz.Resource) (domain.User, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return domain.User{}, authz.ForbiddenError{Action: action}
		}
		return domain.User{}, err
	}
	return actor, authz.Authorize(actor, action, res)
}

// Authorize exposes the access decision to callers that gate work the
// engine does not perform itself, such as the reminder route.
func (e Engine) Authorize(ctx context.Context, actorID string, action authz.Action, res authz.Resource) error {
	_, err := e.authorize(ctx, actorID, action, res)
	return err
}

// ListEvents returns the audit trail newest-first from the given cursor.
func (e Engine) ListEvents(ctx context.Context, actorID string, limit int, cursor int64, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if _, err := e.authorize(ctx, actorID, authz.ReadEvents, authz.Resource{}); err != nil {
		return nil, err
	}
	return read(ctx, e, func(ctx context.Context) ([]domain.Event, error) {
		return e.Repo.LatestEvents(ctx, limit, cursor, evtType, entityKind, entityID)
	})
}

// PresignUpload issues a short-lived direct-upload URL. No store state is
// touched, so an object-store outage surfaces as a dependency failure only.
func (e Engine) PresignUpload(ctx context.Context, actorID, folder, fileName string) (objectstore.Upload, error) {
	if fileName == "" {
		return objectstore.Upload{}, ValidationError{Field: "file_name", Reason: "required"}
	}
	if _, err := e.authorize(ctx, actorID, authz.PresignUpload, authz.Resource{}); err != nil {
		return objectstore.Upload{}, err
	}
	if e.Presigner == nil {
		return objectstore.Upload{}, DependencyError{Op: "object store", Err: errors.New("not configured")}
	}
	ttl := 600 * time.Second
	if e.Config != nil {
		if d, err := e.Config.UploadTTL(); err == nil {
			ttl = d
		}
	}
	key := objectstore.BuildKey(folder, fileName)
	url, err := e.Presigner.PresignPut(ctx, key, ttl)
	if err != nil {
		return objectstore.Upload{}, DependencyError{Op: "presign upload", Err: err}
	}
	return objectstore.Upload{Key: key, URL: url, ExpiresIn: int(ttl.Seconds())}, nil
}
