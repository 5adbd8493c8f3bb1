package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localevents/mocks"
	"localevents/models"
	"localevents/notify"
)

type moderationFixture struct {
	users   *mocks.MockUserRepo
	events  *mocks.MockEventRepo
	reports *mocks.MockReportRepo
	notes   *mocks.RecordingNotifier
	svc     *ModerationService
	event   models.Event
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()
	f := &moderationFixture{
		users:   mocks.NewUserRepo(),
		events:  mocks.NewEventRepo(),
		reports: mocks.NewReportRepo(),
		notes:   &mocks.RecordingNotifier{},
	}
	f.users.Put(models.User{ID: 1, Name: "Owner", Email: "owner@x.com"})
	for id := int64(2); id <= 10; id++ {
		f.users.Put(models.User{ID: id, Email: fmt.Sprintf("u%d@x.com", id)})
	}
	f.event = models.Event{ID: uuid.NewString(), Title: "Street fair", UserID: 1}
	f.events.Put(f.event)
	f.svc = NewModerationService(f.events, f.reports, f.users, f.notes, 5, nil)
	return f
}

func TestAddReport_DuplicateIsConflict(t *testing.T) {
	f := newModerationFixture(t)

	_, err := f.svc.AddReport(context.Background(), f.event.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddReport(context.Background(), f.event.ID, 2)

	assert.ErrorIs(t, err, ErrDuplicateReport)
	assert.Equal(t, 1, f.reports.Len())
}

func TestAddReport_EscalatesOnlyAboveThreshold(t *testing.T) {
	f := newModerationFixture(t)

	for uid := int64(2); uid <= 6; uid++ {
		_, err := f.svc.AddReport(context.Background(), f.event.ID, uid)
		require.NoError(t, err)
	}
	// Five reports: at the threshold, not above it.
	assert.Equal(t, 0, f.notes.Count(notify.KindModerationAlert))

	_, err := f.svc.AddReport(context.Background(), f.event.ID, 7)
	require.NoError(t, err)
	require.Equal(t, 1, f.notes.Count(notify.KindModerationAlert))

	m, err := f.notes.Last(notify.KindModerationAlert)
	require.NoError(t, err)
	assert.Equal(t, "owner@x.com", m.To)
	assert.Contains(t, m.Subject, "Street fair")
}

func TestAddReport_CountFailureKeepsReport(t *testing.T) {
	f := newModerationFixture(t)
	f.reports.CountErr = errors.New("timeout")

	rep, err := f.svc.AddReport(context.Background(), f.event.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rep.UserID)
	assert.Equal(t, 1, f.reports.Len())
}

func TestAddReport_UnknownEvent(t *testing.T) {
	f := newModerationFixture(t)
	_, err := f.svc.AddReport(context.Background(), uuid.NewString(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, f.reports.Len())
}
