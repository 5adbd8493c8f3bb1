package models

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type sqlReportRepo struct{ db *sqlx.DB }

func NewSQLReportRepository(db *sqlx.DB) ReportRepository { return &sqlReportRepo{db} }

func (r *sqlReportRepo) Add(ctx context.Context, userID int64, eventID string) (Report, error) {
	rep := Report{UserID: userID, EventID: eventID}
	// PRIMARY KEY(user_id, event_id) rejects a second report by the same user.
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO reports(user_id, event_id) VALUES ($1,$2) RETURNING created_at`,
		userID, eventID,
	).Scan(&rep.CreatedAt)
	if err != nil {
		return Report{}, classify(err)
	}
	return rep, nil
}

func (r *sqlReportRepo) CountByEvent(ctx context.Context, eventID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("reports").Where(sq.Eq{"event_id": eventID}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	err = r.db.GetContext(ctx, &n, query, args...)
	return n, classify(err)
}
