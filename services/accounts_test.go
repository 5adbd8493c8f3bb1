package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localevents/mocks"
	"localevents/notify"
	"localevents/utils"
)

func newAccounts(t *testing.T) (*AccountService, *mocks.MockUserRepo, *mocks.RecordingNotifier, *utils.TokenService) {
	t.Helper()
	users := mocks.NewUserRepo()
	notes := &mocks.RecordingNotifier{}
	tokens := utils.NewTokenService("test-secret", time.Hour)
	return NewAccountService(users, tokens, notes), users, notes, tokens
}

func TestSignupAndLogin(t *testing.T) {
	svc, users, notes, tokens := newAccounts(t)
	ctx := context.Background()

	u, tok, err := svc.Signup(ctx, SignupInput{Name: "Ana", Email: " Ana@X.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, "ana@x.com", u.Email)
	assert.NotEqual(t, "secret1", users.Get(u.ID).Password)
	assert.Equal(t, 1, notes.Count(notify.KindSignup))

	claims, err := tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	_, _, err = svc.Login(ctx, "ana@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, tok2, err := svc.Login(ctx, "ANA@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, tok2)
}

func TestSignup_DuplicateEmailAndValidation(t *testing.T) {
	svc, _, _, _ := newAccounts(t)
	ctx := context.Background()

	_, _, err := svc.Signup(ctx, SignupInput{Name: "Ana", Email: "ana@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, _, err = svc.Signup(ctx, SignupInput{Name: "Ana 2", Email: "ana@x.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, _, err = svc.Signup(ctx, SignupInput{Name: "Bo", Email: "not-an-email", Password: "secret1"})
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.Signup(ctx, SignupInput{Name: "Bo", Email: "bo@x.com", Password: "123"})
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = svc.Signup(ctx, SignupInput{Email: "bo@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestChangePassword(t *testing.T) {
	svc, users, notes, _ := newAccounts(t)
	ctx := context.Background()
	u, _, err := svc.Signup(ctx, SignupInput{Name: "Ana", Email: "ana@x.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.ChangePassword(ctx, u.ID, u.ID+1, "secret1", "secret2")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ChangePassword(ctx, u.ID, u.ID, "wrong", "secret2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.ChangePassword(ctx, u.ID, u.ID, "secret1", "secret2")
	require.NoError(t, err)
	assert.True(t, utils.CheckPasswordHash("secret2", users.Get(u.ID).Password))
	assert.Equal(t, 1, notes.Count(notify.KindPasswordChanged))
}

func TestGetUser_NotFound(t *testing.T) {
	svc, _, _, _ := newAccounts(t)
	_, err := svc.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
