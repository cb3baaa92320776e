package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"vyomsetu/internal/domain"
)

const submissionColumns = `id,task_id,member_id,member_name,domain,notes,attachments_json,status,comments_json,quality_score,scored_by_id,scored_by_name,scored_at,reviewed_at,reviewed_by_id,reviewed_by_name,created_at,updated_at`

func scanSubmission(scan func(dest ...any) error) (domain.Submission, error) {
	var s domain.Submission
	var attachmentsJSON, commentsJSON sql.NullString
	var score sql.NullFloat64
	var scoredByID, scoredByName, scoredAt, reviewedAt, reviewedByID, reviewedByName sql.NullString
	err := scan(&s.ID, &s.TaskID, &s.MemberID, &s.MemberName, &s.Domain, &s.Notes,
		&attachmentsJSON, &s.Status, &commentsJSON, &score,
		&scoredByID, &scoredByName, &scoredAt,
		&reviewedAt, &reviewedByID, &reviewedByName,
		&s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if attachmentsJSON.Valid && attachmentsJSON.String != "" {
		if err := json.Unmarshal([]byte(attachmentsJSON.String), &s.Attachments); err != nil {
			return s, err
		}
	}
	if commentsJSON.Valid && commentsJSON.String != "" {
		if err := json.Unmarshal([]byte(commentsJSON.String), &s.Comments); err != nil {
			return s, err
		}
	}
	if score.Valid {
		s.QualityScore = &score.Float64
	}
	if scoredByID.Valid {
		s.ScoredByID = &scoredByID.String
	}
	if scoredByName.Valid {
		s.ScoredByName = &scoredByName.String
	}
	if scoredAt.Valid {
		s.ScoredAt = &scoredAt.String
	}
	if reviewedAt.Valid {
		s.ReviewedAt = &reviewedAt.String
	}
	if reviewedByID.Valid {
		s.ReviewedByID = &reviewedByID.String
	}
	if reviewedByName.Valid {
		s.ReviewedByName = &reviewedByName.String
	}
	return s, nil
}

func marshalList(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r Repo) InsertSubmission(ctx context.Context, tx *sql.Tx, s domain.Submission) error {
	attachments, err := marshalList(s.Attachments)
	if err != nil {
		return err
	}
	comments, err := marshalList(s.Comments)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO submissions(`+submissionColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.TaskID, s.MemberID, s.MemberName, s.Domain, s.Notes,
		attachments, s.Status, comments, nullableFloatPtr(s.QualityScore),
		nullableStringPtr(s.ScoredByID), nullableStringPtr(s.ScoredByName), nullableStringPtr(s.ScoredAt),
		nullableStringPtr(s.ReviewedAt), nullableStringPtr(s.ReviewedByID), nullableStringPtr(s.ReviewedByName),
		s.CreatedAt, s.UpdatedAt)
	return err
}

func (r Repo) GetSubmission(ctx context.Context, id string) (domain.Submission, error) {
	return r.getSubmission(ctx, r.DB, id)
}

func (r Repo) GetSubmissionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Submission, error) {
	return r.getSubmission(ctx, tx, id)
}

func (r Repo) getSubmission(ctx context.Context, q querier, id string) (domain.Submission, error) {
	row := q.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=?`, id)
	return scanSubmission(row.Scan)
}

// CountActiveSubmissions counts non-rejected submissions for a task. A
// rejected submission no longer blocks a resubmission.
func (r Repo) CountActiveSubmissions(ctx context.Context, tx *sql.Tx, taskID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE task_id=? AND status != ?`, taskID, domain.SubmissionRejected).Scan(&n)
	return n, err
}

type SubmissionFilters struct {
	TaskID   string
	MemberID string
	Domain   string
	Status   string
	Limit    int
}

func (r Repo) ListSubmissions(ctx context.Context, f SubmissionFilters) ([]domain.Submission, error) {
	var clauses []string
	var args []any
	if f.TaskID != "" {
		clauses = append(clauses, "task_id=?")
		args = append(args, f.TaskID)
	}
	if f.MemberID != "" {
		clauses = append(clauses, "member_id=?")
		args = append(args, f.MemberID)
	}
	if f.Domain != "" {
		clauses = append(clauses, "domain=?")
		args = append(args, f.Domain)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + submissionColumns + ` FROM submissions ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// AppendComment rewrites the comment list with the new entry included.
func (r Repo) AppendComment(ctx context.Context, tx *sql.Tx, id string, comments []domain.Comment, updatedAt string) error {
	payload, err := marshalList(comments)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE submissions SET comments_json=?, updated_at=? WHERE id=?`, payload, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetQualityScore writes the one-shot score. The WHERE clause makes the
// first writer win: a second attempt matches zero rows.
func (r Repo) SetQualityScore(ctx context.Context, tx *sql.Tx, id string, score float64, byID, byName, at string) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE submissions
SET quality_score=?, scored_by_id=?, scored_by_name=?, scored_at=?, updated_at=?
WHERE id=? AND quality_score IS NULL`, score, byID, byName, at, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r Repo) UpdateSubmissionStatus(ctx context.Context, tx *sql.Tx, id, status, byID, byName, at string) error {
	res, err := tx.ExecContext(ctx, `UPDATE submissions
SET status=?, reviewed_at=?, reviewed_by_id=?, reviewed_by_name=?, updated_at=?
WHERE id=?`, status, at, byID, byName, at, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
