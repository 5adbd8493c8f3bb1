package models

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var eventColumns = []string{
	"e.id", "e.title", "e.description", "e.address", "e.lat", "e.lng",
	"e.start_date", "e.end_date", "e.start_time", "e.images",
	"e.city_id", "e.prefecture_id", "e.category_id", "e.user_id",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type sqlEventRepo struct{ db *sqlx.DB }

func NewSQLEventRepository(db *sqlx.DB) EventRepository { return &sqlEventRepo{db} }

func (r *sqlEventRepo) List(ctx context.Context, f EventFilter) ([]Event, error) {
	q := psql.Select(eventColumns...).From("events e")

	if f.City != "" {
		q = q.Join("cities c ON c.id = e.city_id").Where(sq.Eq{"c.label": f.City})
	}
	if f.Prefecture != "" {
		q = q.Join("prefectures p ON p.id = e.prefecture_id").Where(sq.Eq{"p.label": f.Prefecture})
	}
	if f.Category != "" {
		q = q.Join("categories k ON k.id = e.category_id").Where(sq.Eq{"k.label": f.Category})
	}
	if f.CityID != 0 {
		q = q.Where(sq.Eq{"e.city_id": f.CityID})
	}
	if f.PrefectureID != 0 {
		q = q.Where(sq.Eq{"e.prefecture_id": f.PrefectureID})
	}
	if f.CategoryID != 0 {
		q = q.Where(sq.Eq{"e.category_id": f.CategoryID})
	}
	if f.StartDate != nil {
		q = q.Where(sq.Eq{"e.start_date": f.StartDate.Format("2006-01-02")})
	}
	if f.UserID != 0 {
		q = q.Where(sq.Eq{"e.user_id": f.UserID})
	}
	q = q.OrderBy("e.start_date", "e.start_time")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	out := []Event{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (r *sqlEventRepo) GetByID(ctx context.Context, id string) (Event, error) {
	query, args, err := psql.Select(eventColumns...).From("events e").Where(sq.Eq{"e.id": id}).ToSql()
	if err != nil {
		return Event{}, err
	}
	var e Event
	err = r.db.GetContext(ctx, &e, query, args...)
	return e, classify(err)
}

func (r *sqlEventRepo) Create(ctx context.Context, e *Event) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events(id, title, description, address, lat, lng, start_date, end_date,
		                   start_time, images, city_id, prefecture_id, category_id, user_id)
		VALUES (:id, :title, :description, :address, :lat, :lng, :start_date, :end_date,
		        :start_time, :images, :city_id, :prefecture_id, :category_id, :user_id)`, e)
	return classify(err)
}

// Update writes the mutable fields only. Labels and creator never change.
func (r *sqlEventRepo) Update(ctx context.Context, e *Event) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE events
		   SET title=:title, description=:description, address=:address, lat=:lat, lng=:lng,
		       start_date=:start_date, end_date=:end_date, start_time=:start_time
		 WHERE id=:id`, e)
	return expectOne(res, err)
}

func (r *sqlEventRepo) Delete(ctx context.Context, id string, cascade CascadePolicy) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if cascade.Comments {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE event_id=$1`, id); err != nil {
			return classify(err)
		}
	}
	if cascade.Reports {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE event_id=$1`, id); err != nil {
			return classify(err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err := expectOne(res, err); err != nil {
		return err
	}
	return tx.Commit()
}
