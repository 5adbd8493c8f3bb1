package services

import (
	"context"
	"errors"

	"localevents/logger"
	"localevents/models"
	"localevents/notify"
	"localevents/utils"
)

type PasswordResetService struct {
	users    models.UserRepository
	tokens   *ResetTokenStore
	notifier notify.Notifier
	linkBase string
	// revealUnknown makes RequestReset fail with ErrNotFound for addresses
	// without an account instead of answering as if a link was sent.
	revealUnknown bool
}

func NewPasswordResetService(
	users models.UserRepository,
	tokens *ResetTokenStore,
	notifier notify.Notifier,
	linkBase string,
	revealUnknown bool,
) *PasswordResetService {
	return &PasswordResetService{
		users:         users,
		tokens:        tokens,
		notifier:      notifier,
		linkBase:      linkBase,
		revealUnknown: revealUnknown,
	}
}

type resetRequest struct {
	Email string `validate:"required,email"`
}

// RequestReset issues a fresh token and mails the link. Unless revealUnknown
// is set, an unknown address returns nil and nothing is sent.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	const op = "request password reset"
	email = normalizeEmail(email)
	if err := validateInput(op, resetRequest{Email: email}); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		if s.revealUnknown {
			return fail(ErrNotFound, op, err)
		}
		logger.Info("password reset requested for unknown email", nil)
		return nil
	}
	if err != nil {
		return fail(ErrStorage, op, err)
	}

	token, _, err := s.tokens.Issue(ctx, u.ID)
	if err != nil {
		return err
	}
	s.notifier.Notify(notify.ResetLink(u.Email, s.linkBase+token, s.tokens.ttl))
	return nil
}

// ResolveToken returns nil for an unknown or expired token.
func (s *PasswordResetService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	u, ok, err := s.tokens.Lookup(ctx, token)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

type newPassword struct {
	Password string `validate:"min=6,max=72"`
}

// ConsumeToken sets a new password for userID if token is still valid for
// that user. Every token failure looks the same to the caller.
func (s *PasswordResetService) ConsumeToken(ctx context.Context, token string, userID int64, password string) (models.User, error) {
	const op = "consume reset token"
	if err := validateInput(op, newPassword{Password: password}); err != nil {
		return models.User{}, err
	}

	// Cheap pre-check so invalid tokens do not pay for bcrypt.
	u, ok, err := s.tokens.Lookup(ctx, token)
	if err != nil {
		return models.User{}, err
	}
	if !ok || u.ID != userID {
		return models.User{}, fail(ErrInvalidOrExpiredToken, op, nil)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return models.User{}, fail(ErrStorage, op, err)
	}
	if err := s.tokens.Consume(ctx, token, userID, hash); err != nil {
		return models.User{}, err
	}

	u.Password = hash
	u.ResetToken, u.ResetTokenExpiration = nil, nil
	s.notifier.Notify(notify.PasswordChanged(u.Email))
	return u, nil
}
