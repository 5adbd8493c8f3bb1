package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"localevents/logger"
	"localevents/metrics"
	"localevents/models"
	"localevents/notify"
)

// ModerationService stores reports and alerts the event creator once the
// report count exceeds the threshold.
type ModerationService struct {
	events    models.EventRepository
	reports   models.ReportRepository
	users     models.UserRepository
	notifier  notify.Notifier
	threshold int
	metrics   metrics.Recorder
}

func NewModerationService(
	events models.EventRepository,
	reports models.ReportRepository,
	users models.UserRepository,
	notifier notify.Notifier,
	threshold int,
	rec metrics.Recorder,
) *ModerationService {
	if rec == nil {
		rec = metrics.Nop
	}
	return &ModerationService{
		events:    events,
		reports:   reports,
		users:     users,
		notifier:  notifier,
		threshold: threshold,
		metrics:   rec,
	}
}

// AddReport fails only on the insert. Counting and alerting happen after the
// report is stored and their failures are logged, never returned.
func (s *ModerationService) AddReport(ctx context.Context, eventID string, reporterID int64) (models.Report, error) {
	const op = "add report"
	if err := uuid.Validate(eventID); err != nil {
		return models.Report{}, fail(ErrNotFound, op, err)
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return models.Report{}, storeErr(op, err)
	}

	rep, err := s.reports.Add(ctx, reporterID, eventID)
	switch {
	case errors.Is(err, models.ErrDuplicate):
		return models.Report{}, fail(ErrDuplicateReport, op, err)
	case errors.Is(err, models.ErrForeignKey):
		// Event or reporter disappeared after the lookup.
		return models.Report{}, fail(ErrNotFound, op, err)
	case err != nil:
		return models.Report{}, fail(ErrStorage, op, err)
	}

	escalated := s.escalate(ctx, event)
	s.metrics.RecordReport(escalated)
	return rep, nil
}

func (s *ModerationService) escalate(ctx context.Context, event models.Event) bool {
	count, err := s.reports.CountByEvent(ctx, event.ID)
	if err != nil {
		logger.Warn("report count failed", logger.Fields{"event_id": event.ID, "error": err.Error()})
		return false
	}
	if count <= s.threshold {
		return false
	}

	creator, err := s.users.GetByID(ctx, event.UserID)
	if err != nil {
		logger.Warn("moderation alert skipped: creator lookup failed",
			logger.Fields{"event_id": event.ID, "user_id": event.UserID, "error": err.Error()})
		return true
	}
	logger.Info("event crossed report threshold",
		logger.Fields{"event_id": event.ID, "reports": count, "threshold": s.threshold})
	s.notifier.Notify(notify.ModerationAlert(creator.Email, event.Title, count))
	return true
}
