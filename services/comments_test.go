package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"localevents/mocks"
	"localevents/models"
)

func TestComments_AddListDelete(t *testing.T) {
	events := mocks.NewEventRepo()
	comments := mocks.NewCommentRepo()
	svc := NewCommentService(events, comments)
	ctx := context.Background()

	ev := models.Event{ID: uuid.NewString(), UserID: 1}
	events.Put(ev)

	_, err := svc.Add(ctx, ev.ID, 2, "ok")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Add(ctx, uuid.NewString(), 2, "great event")
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := svc.Add(ctx, ev.ID, 2, "great event")
	require.NoError(t, err)
	require.NotNil(t, c.EventID)
	assert.Equal(t, ev.ID, *c.EventID)

	list, err := svc.List(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Only the author may delete, and only under the right event.
	assert.ErrorIs(t, svc.Delete(ctx, ev.ID, c.ID, 1), ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, uuid.NewString(), c.ID, 2), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, ev.ID, c.ID, 2))
	assert.ErrorIs(t, svc.Delete(ctx, ev.ID, c.ID, 2), ErrNotFound)
}

func TestErrorKinds(t *testing.T) {
	err := fail(ErrForbidden, "update event", assert.AnError)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, ErrForbidden, KindOf(err))
	assert.Equal(t, ErrStorage, KindOf(assert.AnError))
	assert.Contains(t, err.Error(), "update event")
}
