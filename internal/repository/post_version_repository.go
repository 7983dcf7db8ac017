package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/postflow-publisher/internal/models"
)

type PostVersionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, v *models.PostVersion) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PostVersion, error)
}

type postVersionRepository struct {
	db *sql.DB
}

func NewPostVersionRepository(db *sql.DB) PostVersionRepository {
	return &postVersionRepository{db: db}
}

func (r *postVersionRepository) Create(ctx context.Context, tx *sql.Tx, v *models.PostVersion) (int64, error) {
	query := `
		INSERT INTO post_versions (post_id, account_id, is_original, body, first_comment, media, options)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := conn(r.db, tx).QueryRowContext(ctx, query,
		v.PostID,
		v.AccountID,
		v.IsOriginal,
		v.Body,
		v.FirstComment,
		v.Media,
		v.Options,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *postVersionRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PostVersion, error) {
	query := `
		SELECT id, post_id, account_id, is_original, body, first_comment, media, options
		FROM post_versions
		WHERE post_id = $1
		ORDER BY is_original DESC, id
	`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var versions []*models.PostVersion
	for rows.Next() {
		var v models.PostVersion
		if err := rows.Scan(&v.ID, &v.PostID, &v.AccountID, &v.IsOriginal, &v.Body, &v.FirstComment, &v.Media, &v.Options); err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("scan row: %w", err)
		}
		versions = append(versions, &v)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return versions, nil
}
