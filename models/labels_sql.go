package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// labelTables is the only source of table names interpolated into SQL.
var labelTables = map[LabelKind]string{
	KindCity:       "cities",
	KindPrefecture: "prefectures",
	KindCategory:   "categories",
}

func tableFor(kind LabelKind) (string, error) {
	t, ok := labelTables[kind]
	if !ok {
		return "", fmt.Errorf("unknown label kind %q", kind)
	}
	return t, nil
}

type sqlLabelRepo struct{ db *sqlx.DB }

func NewSQLLabelRepository(db *sqlx.DB) LabelRepository { return &sqlLabelRepo{db} }

func (r *sqlLabelRepo) FindLabel(ctx context.Context, kind LabelKind, label string) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.GetContext(ctx, &id, `SELECT id FROM `+table+` WHERE label=$1`, label)
	return id, classify(err)
}

func (r *sqlLabelRepo) InsertLabel(ctx context.Context, kind LabelKind, label string) (int64, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.GetContext(ctx, &id,
		`INSERT INTO `+table+`(label) VALUES ($1) ON CONFLICT (label) DO NOTHING RETURNING id`, label)
	if errors.Is(err, sql.ErrNoRows) {
		// DO NOTHING returns no row when the label already exists.
		return 0, fmt.Errorf("%w: %s.label", ErrDuplicate, table)
	}
	return id, classify(err)
}
