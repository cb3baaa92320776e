package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"vyomsetu/internal/authz"
	"vyomsetu/internal/domain"
	"vyomsetu/internal/events"
	"vyomsetu/internal/identity"
	"vyomsetu/internal/repo"
)

// EnsureUser returns the directory record for a verified identity, creating
// a member record on first authentication.
func (e Engine) EnsureUser(ctx context.Context, id identity.Identity) (domain.User, error) {
	u, err := read(ctx, e, func(ctx context.Context) (domain.User, error) {
		return e.Repo.GetUser(ctx, id.Subject)
	})
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	if id.Email == "" {
		return domain.User{}, ValidationError{Field: "email", Reason: "required for first authentication"}
	}

	now := e.nowRFC3339()
	u = domain.User{
		ID:        id.Subject,
		Name:      id.Name,
		Email:     strings.ToLower(id.Email),
		Role:      domain.RoleMember,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer cancel()
	defer tx.Rollback()

	if err := e.Repo.InsertUser(wctx, tx, u); err != nil {
		if repo.IsUniqueEmailErr(err) {
			return domain.User{}, ConflictError{Reason: "email already registered"}
		}
		return domain.User{}, err
	}
	if err := e.Events.Append(wctx, tx, "user.provisioned", events.KindUser, u.ID, u.ID, events.EventPayload{"email": u.Email}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		// Lost a race with a concurrent first request for the same subject.
		if existing, gerr := e.actor(ctx, id.Subject); gerr == nil {
			return existing, nil
		}
		return domain.User{}, err
	}
	return u, nil
}

// ProfileOptions carries the fields a user completes after first sign-in.
type ProfileOptions struct {
	ActorID string
	Name    string
	Phone   string
	College string
	Domain  string
}

func (e Engine) CompleteProfile(ctx context.Context, opts ProfileOptions) (domain.User, error) {
	if opts.Name == "" {
		return domain.User{}, ValidationError{Field: "name", Reason: "required"}
	}
	if opts.Domain != "" && e.Config != nil && !e.Config.KnownDomain(opts.Domain) {
		return domain.User{}, ValidationError{Field: "domain", Reason: "unknown domain"}
	}
	u, err := e.actor(ctx, opts.ActorID)
	if err != nil {
		return domain.User{}, err
	}
	u.Name = opts.Name
	u.Phone = opts.Phone
	u.College = opts.College
	if opts.Domain != "" {
		u.Domain = opts.Domain
	}
	u.ProfileComplete = true
	u.UpdatedAt = e.nowRFC3339()

	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer cancel()
	defer tx.Rollback()
	if err := e.Repo.UpdateUser(wctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(wctx, tx, "user.profile_completed", events.KindUser, u.ID, u.ID, nil); err != nil {
		return domain.User{}, err
	}
	return u, tx.Commit()
}

// SetRoleOptions identifies the target by email, the way the directory is
// administered in practice.
type SetRoleOptions struct {
	ActorID string
	Email   string
	Role    string
	Domain  string
}

func (e Engine) SetUserRole(ctx context.Context, opts SetRoleOptions) (domain.User, error) {
	role, err := domain.ParseRole(opts.Role)
	if err != nil {
		return domain.User{}, ValidationError{Field: "role", Reason: err.Error()}
	}
	scoped := role == domain.RoleDomainLead || role == domain.RoleMember
	if scoped && opts.Domain == "" {
		return domain.User{}, ValidationError{Field: "domain", Reason: "required for role " + role}
	}
	if opts.Domain != "" && e.Config != nil && !e.Config.KnownDomain(opts.Domain) {
		return domain.User{}, ValidationError{Field: "domain", Reason: "unknown domain"}
	}
	if _, err := e.authorize(ctx, opts.ActorID, authz.ManageUsers, authz.Resource{}); err != nil {
		return domain.User{}, err
	}
	target, err := read(ctx, e, func(ctx context.Context) (domain.User, error) {
		return e.Repo.GetUserByEmail(ctx, strings.ToLower(opts.Email))
	})
	if err != nil {
		return domain.User{}, err
	}
	target.Role = role
	if scoped {
		target.Domain = opts.Domain
	} else {
		target.Domain = ""
	}
	target.UpdatedAt = e.nowRFC3339()

	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer cancel()
	defer tx.Rollback()
	if err := e.Repo.UpdateUser(wctx, tx, target); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(wctx, tx, "user.role_changed", events.KindUser, target.ID, opts.ActorID, events.EventPayload{
		"role":   target.Role,
		"domain": target.Domain,
	}); err != nil {
		return domain.User{}, err
	}
	return target, tx.Commit()
}

// UserUpdateOptions covers super-admin edits to another user's record.
type UserUpdateOptions struct {
	ActorID string
	UserID  string
	Name    *string
	Phone   *string
	College *string
	Domain  *string
}

func (e Engine) UpdateUser(ctx context.Context, opts UserUpdateOptions) (domain.User, error) {
	if _, err := e.authorize(ctx, opts.ActorID, authz.ManageUsers, authz.Resource{}); err != nil {
		return domain.User{}, err
	}
	target, err := read(ctx, e, func(ctx context.Context) (domain.User, error) {
		return e.Repo.GetUser(ctx, opts.UserID)
	})
	if err != nil {
		return domain.User{}, err
	}
	if opts.Name != nil {
		target.Name = *opts.Name
	}
	if opts.Phone != nil {
		target.Phone = *opts.Phone
	}
	if opts.College != nil {
		target.College = *opts.College
	}
	if opts.Domain != nil {
		if *opts.Domain != "" && e.Config != nil && !e.Config.KnownDomain(*opts.Domain) {
			return domain.User{}, ValidationError{Field: "domain", Reason: "unknown domain"}
		}
		target.Domain = *opts.Domain
	}
	target.UpdatedAt = e.nowRFC3339()

	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return domain.User{}, err
	}
	defer cancel()
	defer tx.Rollback()
	if err := e.Repo.UpdateUser(wctx, tx, target); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(wctx, tx, "user.updated", events.KindUser, target.ID, opts.ActorID, nil); err != nil {
		return domain.User{}, err
	}
	return target, tx.Commit()
}

func (e Engine) DeleteUser(ctx context.Context, actorID, userID string) error {
	actor, err := e.authorize(ctx, actorID, authz.ManageUsers, authz.Resource{})
	if err != nil {
		return err
	}
	if actor.ID == userID {
		return ValidationError{Field: "user_id", Reason: "cannot delete own account"}
	}
	tx, wctx, cancel, err := e.beginWrite(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer tx.Rollback()
	if err := e.Repo.DeleteUser(wctx, tx, userID); err != nil {
		return err
	}
	if err := e.Events.Append(wctx, tx, "user.deleted", events.KindUser, userID, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// ListUsers scopes the directory by the caller's role: super-admins and
// admins see everyone, leads see their domain, members see themselves.
func (e Engine) ListUsers(ctx context.Context, actorID string, f repo.UserFilters) ([]domain.User, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin:
	case domain.RoleDomainLead:
		f.Domain = actor.Domain
	default:
		return []domain.User{actor}, nil
	}
	return read(ctx, e, func(ctx context.Context) ([]domain.User, error) {
		return e.Repo.ListUsers(ctx, f)
	})
}

func (e Engine) GetUser(ctx context.Context, actorID, userID string) (domain.User, error) {
	actor, err := e.actor(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	target, err := read(ctx, e, func(ctx context.Context) (domain.User, error) {
		return e.Repo.GetUser(ctx, userID)
	})
	if err != nil {
		return domain.User{}, err
	}
	if actor.ID == target.ID {
		return target, nil
	}
	if err := authz.Authorize(actor, authz.ManageUsers, authz.Resource{TargetUserID: userID}); err != nil {
		// Leads may look up members of their own domain.
		if actor.Role == domain.RoleDomainLead && actor.Domain == target.Domain {
			return target, nil
		}
		return domain.User{}, err
	}
	return target, nil
}

// NewUserID mints a directory id for records created outside of token
// authentication, such as seeded accounts.
func NewUserID() string {
	return uuid.NewString()
}
