package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"localevents/models"
	"localevents/notify"
	"localevents/utils"
)

// AccountService covers signup, login and password changes.
type AccountService struct {
	users    models.UserRepository
	tokens   *utils.TokenService
	notifier notify.Notifier
}

func NewAccountService(users models.UserRepository, tokens *utils.TokenService, notifier notify.Notifier) *AccountService {
	return &AccountService{users: users, tokens: tokens, notifier: notifier}
}

type SignupInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=6,max=72"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup returns the created user and a bearer token for it.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (models.User, string, error) {
	const op = "signup"
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(op, in); err != nil {
		return models.User{}, "", err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.User{}, "", fail(ErrStorage, op, err)
	}
	u := models.User{Name: in.Name, Email: in.Email, Password: hash}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return models.User{}, "", fail(ErrEmailTaken, op, err)
		}
		return models.User{}, "", fail(ErrStorage, op, err)
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return models.User{}, "", fail(ErrStorage, op, err)
	}
	s.notifier.Notify(notify.SignupConfirmation(u.Email))
	return u, token, nil
}

// Login answers ErrInvalidCredentials for an unknown email and a wrong
// password alike.
func (s *AccountService) Login(ctx context.Context, email, password string) (models.User, string, error) {
	const op = "login"
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, "", fail(ErrInvalidCredentials, op, err)
	}
	if err != nil {
		return models.User{}, "", fail(ErrStorage, op, err)
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return models.User{}, "", fail(ErrInvalidCredentials, op, nil)
	}

	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return models.User{}, "", fail(ErrStorage, op, err)
	}
	return u, token, nil
}

func (s *AccountService) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, storeErr("get user", err)
	}
	return u, nil
}

type passwordChange struct {
	Old string `validate:"required"`
	New string `validate:"min=6,max=72"`
}

// ChangePassword lets a user replace their own password after proving the
// current one.
func (s *AccountService) ChangePassword(ctx context.Context, userID, requesterID int64, oldPassword, newPassword string) (models.User, error) {
	const op = "change password"
	if userID != requesterID {
		return models.User{}, fail(ErrForbidden, op, fmt.Errorf("user %d cannot change password of %d", requesterID, userID))
	}
	if err := validateInput(op, passwordChange{Old: oldPassword, New: newPassword}); err != nil {
		return models.User{}, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, storeErr(op, err)
	}
	if !utils.CheckPasswordHash(oldPassword, u.Password) {
		return models.User{}, fail(ErrInvalidCredentials, op, nil)
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return models.User{}, fail(ErrStorage, op, err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return models.User{}, storeErr(op, err)
	}
	u.Password = hash
	s.notifier.Notify(notify.PasswordChanged(u.Email))
	return u, nil
}
