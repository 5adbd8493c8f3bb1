package models

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type sqlCommentRepo struct{ db *sqlx.DB }

func NewSQLCommentRepository(db *sqlx.DB) CommentRepository { return &sqlCommentRepo{db} }

func (r *sqlCommentRepo) Create(ctx context.Context, c *Comment) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO comments(content, event_id, user_id) VALUES ($1,$2,$3) RETURNING id, created_at`,
		c.Content, c.EventID, c.UserID,
	).Scan(&c.ID, &c.CreatedAt)
	return classify(err)
}

func (r *sqlCommentRepo) GetByID(ctx context.Context, id int64) (Comment, error) {
	var c Comment
	err := r.db.GetContext(ctx, &c,
		`SELECT id, content, event_id, user_id, created_at FROM comments WHERE id=$1`, id)
	return c, classify(err)
}

func (r *sqlCommentRepo) ListByEvent(ctx context.Context, eventID string) ([]Comment, error) {
	query, args, err := psql.Select("id", "content", "event_id", "user_id", "created_at").
		From("comments").
		Where(sq.Eq{"event_id": eventID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	out := []Comment{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *sqlCommentRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, id)
	return expectOne(res, err)
}
