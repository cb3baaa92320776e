package repo

import (
	"context"
	"database/sql"
	"strings"

	"vyomsetu/internal/domain"
)

const taskColumns = `id,title,description,domain,assignee_id,assignee_name,priority,status,due_date,reminded,last_reminder_sent,created_by_id,created_by_name,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var lastReminder sql.NullString
	err := scan(&t.ID, &t.Title, &t.Description, &t.Domain, &t.AssigneeID, &t.AssigneeName,
		&t.Priority, &t.Status, &t.DueDate, &t.Reminded, &lastReminder,
		&t.CreatedByID, &t.CreatedByName, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if lastReminder.Valid {
		t.LastReminderSent = &lastReminder.String
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, t.Description, t.Domain, t.AssigneeID, t.AssigneeName,
		t.Priority, t.Status, t.DueDate, t.Reminded, nullableStringPtr(t.LastReminderSent),
		t.CreatedByID, t.CreatedByName, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return r.getTask(ctx, r.DB, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return r.getTask(ctx, tx, id)
}

func (r Repo) getTask(ctx context.Context, q querier, id string) (domain.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

type TaskFilters struct {
	Domain     string
	AssigneeID string
	Status     string
	Limit      int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.Domain != "" {
		clauses = append(clauses, "domain=?")
		args = append(args, f.Domain)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// ListReminderCandidates returns open tasks past their due date that have
// not yet been reminded.
func (r Repo) ListReminderCandidates(ctx context.Context, now string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
WHERE status IN (?,?) AND reminded=0 AND due_date < ?
ORDER BY due_date ASC, id ASC`, domain.TaskPending, domain.TaskInProgress, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateTaskStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkTaskReminded records a delivered reminder. Only flips tasks still in
// the un-reminded state so concurrent sweeps do not double-stamp.
func (r Repo) MarkTaskReminded(ctx context.Context, id, sentAt string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE tasks SET reminded=1, last_reminder_sent=?, updated_at=? WHERE id=? AND reminded=0`, sentAt, sentAt, id)
	return err
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
