package services

import (
	"context"
	"errors"
	"time"

	"localevents/models"
	"localevents/utils"
)

// ResetTokenStore keeps at most one reset token per user, on the user row.
// A token is valid while its expiry is strictly after now.
type ResetTokenStore struct {
	users    models.UserRepository
	ttl      time.Duration
	now      func() time.Time
	newToken func() (string, error)
}

func NewResetTokenStore(users models.UserRepository, ttl time.Duration) *ResetTokenStore {
	return &ResetTokenStore{users: users, ttl: ttl, now: time.Now, newToken: utils.NewResetToken}
}

// Issue replaces any earlier token of the user.
func (s *ResetTokenStore) Issue(ctx context.Context, userID int64) (string, time.Time, error) {
	const op = "issue reset token"
	token, err := s.newToken()
	if err != nil {
		return "", time.Time{}, fail(ErrStorage, op, err)
	}
	expiresAt := s.now().Add(s.ttl)
	if err := s.users.SetResetToken(ctx, userID, token, expiresAt); err != nil {
		return "", time.Time{}, storeErr(op, err)
	}
	return token, expiresAt, nil
}

// Lookup reports false for unknown and expired tokens alike.
func (s *ResetTokenStore) Lookup(ctx context.Context, token string) (models.User, bool, error) {
	if token == "" {
		return models.User{}, false, nil
	}
	u, err := s.users.FindByResetToken(ctx, token, s.now())
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fail(ErrStorage, "lookup reset token", err)
	}
	return u, true, nil
}

// Consume stores hash and clears the token in a single conditional write.
// Of two concurrent consumers only one succeeds.
func (s *ResetTokenStore) Consume(ctx context.Context, token string, userID int64, hash string) error {
	const op = "consume reset token"
	err := s.users.ConsumeResetToken(ctx, userID, token, hash, s.now())
	if errors.Is(err, models.ErrNotFound) {
		return fail(ErrInvalidOrExpiredToken, op, err)
	}
	if err != nil {
		return fail(ErrStorage, op, err)
	}
	return nil
}
