package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"localevents/models"
)

type CommentService struct {
	events   models.EventRepository
	comments models.CommentRepository
}

func NewCommentService(events models.EventRepository, comments models.CommentRepository) *CommentService {
	return &CommentService{events: events, comments: comments}
}

type commentInput struct {
	Content string `validate:"min=3,max=2000"`
}

func (s *CommentService) Add(ctx context.Context, eventID string, userID int64, content string) (models.Comment, error) {
	const op = "add comment"
	if err := validateInput(op, commentInput{Content: content}); err != nil {
		return models.Comment{}, err
	}
	if err := uuid.Validate(eventID); err != nil {
		return models.Comment{}, fail(ErrNotFound, op, err)
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return models.Comment{}, storeErr(op, err)
	}

	c := models.Comment{Content: content, EventID: &eventID, UserID: userID}
	if err := s.comments.Create(ctx, &c); err != nil {
		if errors.Is(err, models.ErrForeignKey) {
			return models.Comment{}, fail(ErrNotFound, op, err)
		}
		return models.Comment{}, fail(ErrStorage, op, err)
	}
	return c, nil
}

func (s *CommentService) List(ctx context.Context, eventID string) ([]models.Comment, error) {
	if err := uuid.Validate(eventID); err != nil {
		return nil, fail(ErrNotFound, "list comments", err)
	}
	out, err := s.comments.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fail(ErrStorage, "list comments", err)
	}
	return out, nil
}

// Delete is allowed to the comment's author only.
func (s *CommentService) Delete(ctx context.Context, eventID string, commentID, requesterID int64) error {
	const op = "delete comment"
	c, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return storeErr(op, err)
	}
	if c.EventID == nil || *c.EventID != eventID {
		return fail(ErrNotFound, op, fmt.Errorf("comment %d not under event %s", commentID, eventID))
	}
	if c.UserID != requesterID {
		return fail(ErrForbidden, op, fmt.Errorf("user %d is not the author of comment %d", requesterID, commentID))
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return storeErr(op, err)
	}
	return nil
}
