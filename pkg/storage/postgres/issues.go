package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/apnisec/issuetracker/pkg/issues"
)

const issueColumns = `id, email, title, description, type, status, created_at, updated_at`

// IssueStore implements issues.Store on the posts table.
type IssueStore struct {
	db *sql.DB
}

// NewIssueStore creates an issue store over an open connection pool.
func NewIssueStore(db *sql.DB) *IssueStore {
	return &IssueStore{db: db}
}

func (s *IssueStore) Create(ctx context.Context, issue *issues.Issue) (int64, error) {
	query := `
		INSERT INTO posts (email, title, description, type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`

	status := issue.Status
	if status == "" {
		status = issues.StatusOpen
	}

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		issue.Email,
		issue.Title,
		issue.Description,
		string(issue.Type),
		string(status),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create issue: %w", err)
	}
	return id, nil
}

func (s *IssueStore) Get(ctx context.Context, owner string, id int64) (*issues.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM posts WHERE id = $1 AND email = $2`

	issue, err := scanIssue(s.db.QueryRowContext(ctx, query, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, issues.ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return issue, nil
}

func (s *IssueStore) List(ctx context.Context, filter issues.Filter) ([]*issues.Issue, error) {
	query := `SELECT ` + issueColumns + ` FROM posts`
	var args []interface{}

	switch {
	case filter.Range != nil:
		query += ` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
		args = append(args, filter.Range.Limit(), filter.Range.Start)
	case filter.Email != "":
		query += ` WHERE email = $1 ORDER BY created_at DESC, id DESC`
		args = append(args, filter.Email)
	case filter.Type != "":
		query += ` WHERE type = $1 ORDER BY created_at DESC, id DESC`
		args = append(args, string(filter.Type))
	default:
		query += ` ORDER BY created_at DESC, id DESC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	result := make([]*issues.Issue, 0)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		result = append(result, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issues: %w", err)
	}
	return result, nil
}

func (s *IssueStore) Update(ctx context.Context, owner string, id int64, update issues.Update) error {
	sets := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		add("title", strings.TrimSpace(*update.Title))
	}
	if update.Description != nil {
		add("description", strings.TrimSpace(*update.Description))
	}
	if update.Type != nil {
		add("type", string(*update.Type))
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, id, owner)
	query := fmt.Sprintf(`UPDATE posts SET %s WHERE id = $%d AND email = $%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}
	return requireRow(result)
}

func (s *IssueStore) Delete(ctx context.Context, owner string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1 AND email = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check result: %w", err)
	}
	if rows == 0 {
		return issues.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row rowScanner) (*issues.Issue, error) {
	var (
		issue       issues.Issue
		issueType   string
		issueStatus string
	)
	if err := row.Scan(
		&issue.ID,
		&issue.Email,
		&issue.Title,
		&issue.Description,
		&issueType,
		&issueStatus,
		&issue.CreatedAt,
		&issue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	issue.Type = issues.Type(issueType)
	issue.Status = issues.Status(issueStatus)
	return &issue, nil
}
