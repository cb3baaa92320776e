package repo

import (
	"context"
	"database/sql"
	"strings"

	"vyomsetu/internal/domain"
)

const creditColumns = `id,submission_id,member_id,task_id,quality_score,total_credits,awarded_by_id,awarded_by_name,awarded_at`

// InsertCredit appends a ledger entry. The unique index on submission_id
// backs up the first-write-wins score: a duplicate insert fails.
func (r Repo) InsertCredit(ctx context.Context, tx *sql.Tx, c domain.CreditEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO credits(`+creditColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.SubmissionID, c.MemberID, c.TaskID, c.QualityScore, c.TotalCredits, c.AwardedByID, c.AwardedByName, c.AwardedAt)
	return err
}

type CreditFilters struct {
	MemberID     string
	TaskID       string
	SubmissionID string
}

func (r Repo) ListCredits(ctx context.Context, f CreditFilters) ([]domain.CreditEntry, error) {
	var clauses []string
	var args []any
	if f.MemberID != "" {
		clauses = append(clauses, "member_id=?")
		args = append(args, f.MemberID)
	}
	if f.TaskID != "" {
		clauses = append(clauses, "task_id=?")
		args = append(args, f.TaskID)
	}
	if f.SubmissionID != "" {
		clauses = append(clauses, "submission_id=?")
		args = append(args, f.SubmissionID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+creditColumns+` FROM credits `+where+` ORDER BY awarded_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.CreditEntry
	for rows.Next() {
		var c domain.CreditEntry
		if err := rows.Scan(&c.ID, &c.SubmissionID, &c.MemberID, &c.TaskID, &c.QualityScore, &c.TotalCredits, &c.AwardedByID, &c.AwardedByName, &c.AwardedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// MemberCreditTotal sums a member's earned credits.
func (r Repo) MemberCreditTotal(ctx context.Context, memberID string) (int, error) {
	var total sql.NullInt64
	err := r.DB.QueryRowContext(ctx, `SELECT SUM(total_credits) FROM credits WHERE member_id=?`, memberID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
