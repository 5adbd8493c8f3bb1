package services

import (
	"context"
	"errors"
	"strings"

	"localevents/models"
)

const maxLabelLen = 40

// EntityResolver maps a free-text city, prefecture or category label to its
// canonical row, creating the row on first use.
type EntityResolver struct {
	labels models.LabelRepository
}

func NewEntityResolver(labels models.LabelRepository) *EntityResolver {
	return &EntityResolver{labels: labels}
}

// Resolve matches label exactly (case-sensitive). Two callers racing on an
// unseen label both get the id of the single row the store accepted: the
// loser's insert conflicts and it reads the winner's row.
func (r *EntityResolver) Resolve(ctx context.Context, kind models.LabelKind, label string) (int64, error) {
	const op = "resolve label"
	if strings.TrimSpace(label) == "" || len(label) > maxLabelLen {
		return 0, fail(ErrValidation, op, errors.New(string(kind)+" label must be 1-40 characters"))
	}

	id, err := r.labels.FindLabel(ctx, kind, label)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return 0, fail(ErrResolution, op, err)
	}

	id, err = r.labels.InsertLabel(ctx, kind, label)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, models.ErrDuplicate) {
		return 0, fail(ErrResolution, op, err)
	}

	// Lost the race. Labels are never deleted, so the winner's row is there.
	id, err = r.labels.FindLabel(ctx, kind, label)
	if err != nil {
		return 0, fail(ErrResolution, op, err)
	}
	return id, nil
}
