package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localevents/mocks"
	"localevents/models"
	"localevents/notify"
	"localevents/utils"
)

type resetFixture struct {
	users  *mocks.MockUserRepo
	notes  *mocks.RecordingNotifier
	tokens *ResetTokenStore
	svc    *PasswordResetService
	now    time.Time
}

func newResetFixture(t *testing.T, reveal bool) *resetFixture {
	t.Helper()
	f := &resetFixture{
		users: mocks.NewUserRepo(),
		notes: &mocks.RecordingNotifier{},
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.tokens = NewResetTokenStore(f.users, time.Hour)
	f.tokens.now = func() time.Time { return f.now }
	f.svc = NewPasswordResetService(f.users, f.tokens, f.notes, "http://localhost:3000/reset/", reveal)
	f.users.Put(models.User{ID: 1, Name: "Ana", Email: "ana@x.com", Password: "old-hash"})
	return f
}

func (f *resetFixture) requestToken(t *testing.T) string {
	t.Helper()
	require.NoError(t, f.svc.RequestReset(context.Background(), "ana@x.com"))
	m, err := f.notes.Last(notify.KindResetLink)
	require.NoError(t, err)
	u := f.users.Get(1)
	require.NotNil(t, u.ResetToken)
	require.Contains(t, m.HTML, "http://localhost:3000/reset/"+*u.ResetToken)
	return *u.ResetToken
}

func TestRequestReset_IssuesTokenAndMailsLink(t *testing.T) {
	f := newResetFixture(t, false)
	tok := f.requestToken(t)

	assert.Len(t, tok, 64)
	u := f.users.Get(1)
	assert.Equal(t, f.now.Add(time.Hour), *u.ResetTokenExpiration)
}

func TestRequestReset_NewTokenReplacesOld(t *testing.T) {
	f := newResetFixture(t, false)
	first := f.requestToken(t)
	second := f.requestToken(t)
	require.NotEqual(t, first, second)

	u, err := f.svc.ResolveToken(context.Background(), first)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestRequestReset_UnknownEmail(t *testing.T) {
	quiet := newResetFixture(t, false)
	assert.NoError(t, quiet.svc.RequestReset(context.Background(), "ghost@x.com"))
	assert.Empty(t, quiet.notes.Messages())

	loud := newResetFixture(t, true)
	assert.ErrorIs(t, loud.svc.RequestReset(context.Background(), "ghost@x.com"), ErrNotFound)
}

func TestResolveToken_ExpiryIsStrict(t *testing.T) {
	f := newResetFixture(t, false)
	tok := f.requestToken(t)

	f.now = f.now.Add(time.Hour - time.Nanosecond)
	u, err := f.svc.ResolveToken(context.Background(), tok)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(1), u.ID)

	// Expiry exactly equal to now counts as expired.
	f.now = f.now.Add(time.Nanosecond)
	u, err = f.svc.ResolveToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = f.svc.ConsumeToken(context.Background(), tok, 1, "newsecret")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestConsumeToken_SingleUse(t *testing.T) {
	f := newResetFixture(t, false)
	tok := f.requestToken(t)

	u, err := f.svc.ConsumeToken(context.Background(), tok, 1, "newsecret")
	require.NoError(t, err)
	assert.Nil(t, u.ResetToken)

	stored := f.users.Get(1)
	assert.True(t, utils.CheckPasswordHash("newsecret", stored.Password))
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetTokenExpiration)
	assert.Equal(t, 1, f.notes.Count(notify.KindPasswordChanged))

	_, err = f.svc.ConsumeToken(context.Background(), tok, 1, "another1")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestConsumeToken_WrongUserOrToken(t *testing.T) {
	f := newResetFixture(t, false)
	f.users.Put(models.User{ID: 2, Email: "bo@x.com", Password: "h"})
	tok := f.requestToken(t)

	_, err := f.svc.ConsumeToken(context.Background(), tok, 2, "newsecret")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	_, err = f.svc.ConsumeToken(context.Background(), strings.Repeat("0", 64), 1, "newsecret")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	// Failed attempts leave the token usable.
	_, err = f.svc.ConsumeToken(context.Background(), tok, 1, "newsecret")
	assert.NoError(t, err)
}

func TestConsumeToken_ConcurrentOnlyOneWins(t *testing.T) {
	f := newResetFixture(t, false)
	tok := f.requestToken(t)

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ConsumeToken(context.Background(), tok, 1, "newsecret")
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestConsumeToken_ShortPassword(t *testing.T) {
	f := newResetFixture(t, false)
	tok := f.requestToken(t)
	_, err := f.svc.ConsumeToken(context.Background(), tok, 1, "123")
	assert.ErrorIs(t, err, ErrValidation)
}
