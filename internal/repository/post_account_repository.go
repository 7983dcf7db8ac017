package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type PostAccountRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pa *models.PostAccount) error
	GetByID(ctx context.Context, postID, accountID int64) (*models.PostAccount, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostAccount, error)
	SetPublished(ctx context.Context, postID, accountID int64, providerPostID string) error
	SetErrors(ctx context.Context, postID, accountID int64, errs models.ErrorList) error
	Remove(ctx context.Context, postID, accountID int64) error
}

type postAccountRepository struct {
	db *sql.DB
}

func NewPostAccountRepository(db *sql.DB) PostAccountRepository {
	return &postAccountRepository{db: db}
}

// Create attaches an account to a post with an empty outcome.
func (r *postAccountRepository) Create(ctx context.Context, tx *sql.Tx, pa *models.PostAccount) error {
	var err error

	query := `
		INSERT INTO post_accounts (post_id, account_id, provider_post_id, errors)
		VALUES ($1, $2, NULL, NULL)
	`
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, pa.PostID, pa.AccountID)
	} else {
		_, err = r.db.ExecContext(ctx, query, pa.PostID, pa.AccountID)
	}

	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postAccountRepository) GetByID(ctx context.Context, postID, accountID int64) (*models.PostAccount, error) {
	query := `
		SELECT post_id, account_id, provider_post_id, errors, created_at, updated_at
		FROM post_accounts
		WHERE post_id = $1 AND account_id = $2
	`

	var pa models.PostAccount
	err := r.db.QueryRowContext(ctx, query, postID, accountID).Scan(&pa.PostID, &pa.AccountID, &pa.ProviderPostID, &pa.Errors, &pa.CreatedAt, &pa.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, fmt.Errorf("query row: %w", err)
	}

	return &pa, nil
}

func (r *postAccountRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostAccount, error) {
	query := `
		SELECT post_id, account_id, provider_post_id, errors, created_at, updated_at
		FROM post_accounts
		WHERE post_id = $1
		ORDER BY account_id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var accounts []*models.PostAccount
	for rows.Next() {
		var pa models.PostAccount
		if err := rows.Scan(&pa.PostID, &pa.AccountID, &pa.ProviderPostID, &pa.Errors, &pa.CreatedAt, &pa.UpdatedAt); err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		accounts = append(accounts, &pa)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return accounts, nil
}

// SetPublished stores the provider id and clears errors from earlier attempts.
func (r *postAccountRepository) SetPublished(ctx context.Context, postID, accountID int64, providerPostID string) error {
	query := `
		UPDATE post_accounts
		SET provider_post_id = $1,
			errors = NULL,
			updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $2 AND account_id = $3
	`
	_, err := r.db.ExecContext(ctx, query, providerPostID, postID, accountID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postAccountRepository) SetErrors(ctx context.Context, postID, accountID int64, errs models.ErrorList) error {
	query := `
		UPDATE post_accounts
		SET errors = $1,
			updated_at = CURRENT_TIMESTAMP
		WHERE post_id = $2 AND account_id = $3
	`
	_, err := r.db.ExecContext(ctx, query, errs, postID, accountID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postAccountRepository) Remove(ctx context.Context, postID, accountID int64) error {
	query := `DELETE FROM post_accounts WHERE post_id = $1 AND account_id = $2`
	_, err := r.db.ExecContext(ctx, query, postID, accountID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
