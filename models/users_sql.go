package models

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, name, email, password, reset_token, reset_token_expiration, created_at`

type sqlUserRepo struct{ db *sqlx.DB }

func NewSQLUserRepository(db *sqlx.DB) UserRepository { return &sqlUserRepo{db} }

// Create expects u.Password to already hold the bcrypt hash.
func (r *sqlUserRepo) Create(ctx context.Context, u *User) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users(name, email, password) VALUES ($1,$2,$3) RETURNING id, created_at`,
		u.Name, u.Email, u.Password,
	).Scan(&u.ID, &u.CreatedAt)
	return classify(err)
}

func (r *sqlUserRepo) GetByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return u, classify(err)
}

func (r *sqlUserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	return u, classify(err)
}

func (r *sqlUserRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password=$1 WHERE id=$2`, hash, id)
	return expectOne(res, err)
}

func (r *sqlUserRepo) SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token=$1, reset_token_expiration=$2 WHERE id=$3`,
		token, expiresAt, id)
	return expectOne(res, err)
}

func (r *sqlUserRepo) FindByResetToken(ctx context.Context, token string, now time.Time) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u,
		`SELECT `+userColumns+` FROM users WHERE reset_token=$1 AND reset_token_expiration > $2`,
		token, now)
	return u, classify(err)
}

func (r *sqlUserRepo) ConsumeResetToken(ctx context.Context, id int64, token, hash string, now time.Time) error {
	// The WHERE clause re-checks ownership and expiry, so two concurrent
	// consumers of the same token cannot both succeed.
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET password=$1, reset_token=NULL, reset_token_expiration=NULL
		  WHERE id=$2 AND reset_token=$3 AND reset_token_expiration > $4`,
		hash, id, token, now)
	return expectOne(res, err)
}
