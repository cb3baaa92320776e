package repo

import (
	"context"
	"database/sql"
	"strings"

	"vyomsetu/internal/domain"
)

const userColumns = `id,name,email,role,domain,phone,college,profile_complete,created_at,updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Domain, &u.Phone, &u.College, &u.ProfileComplete, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Name, u.Email, u.Role, u.Domain, u.Phone, u.College, u.ProfileComplete, u.CreatedAt, u.UpdatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserTx(ctx context.Context, tx *sql.Tx, id string) (domain.User, error) {
	return scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

type UserFilters struct {
	Role   string
	Domain string
}

func (r Repo) ListUsers(ctx context.Context, f UserFilters) ([]domain.User, error) {
	var clauses []string
	var args []any
	if f.Role != "" {
		clauses = append(clauses, "role=?")
		args = append(args, f.Role)
	}
	if f.Domain != "" {
		clauses = append(clauses, "domain=?")
		args = append(args, f.Domain)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Domain, &u.Phone, &u.College, &u.ProfileComplete, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// UpdateUser writes the mutable directory fields.
func (r Repo) UpdateUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	res, err := tx.ExecContext(ctx, `UPDATE users SET name=?, role=?, domain=?, phone=?, college=?, profile_complete=?, updated_at=? WHERE id=?`,
		u.Name, u.Role, u.Domain, u.Phone, u.College, u.ProfileComplete, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteUser(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsUniqueEmailErr reports whether err came from the users.email unique index.
func IsUniqueEmailErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "users.email")
}
