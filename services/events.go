package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"localevents/geocode"
	"localevents/models"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// EventInput is the client side of a new event. Coordinates are never
// accepted from the client; they come from geocoding Address.
type EventInput struct {
	Title       string  `json:"title" validate:"required,max=100"`
	Description string  `json:"description" validate:"min=5"`
	Address     string  `json:"address" validate:"required,max=255"`
	City        string  `json:"city" validate:"required"`
	Prefecture  string  `json:"prefecture" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	StartDate   string  `json:"startDate" validate:"required"`
	EndDate     string  `json:"endDate" validate:"required"`
	StartTime   string  `json:"startTime" validate:"required"`
	Images      *string `json:"images" validate:"omitempty"`
}

// EventUpdate holds the mutable fields. Labels and creator are fixed at creation.
type EventUpdate struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"min=5"`
	Address     string `json:"address" validate:"required,max=255"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	StartTime   string `json:"startTime" validate:"required"`
}

type schedule struct {
	start, end time.Time
	startTime  string
}

func parseSchedule(op, startDate, endDate, startTime string) (schedule, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return schedule{}, fail(ErrValidation, op, fmt.Errorf("startDate: %w", err))
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return schedule{}, fail(ErrValidation, op, fmt.Errorf("endDate: %w", err))
	}
	if end.Before(start) {
		return schedule{}, fail(ErrValidation, op, errors.New("endDate before startDate"))
	}
	// Accept HH:MM and HH:MM:SS, store HH:MM:SS.
	t, err := time.Parse(timeLayout, startTime)
	if err != nil {
		if t, err = time.Parse(time.TimeOnly, startTime); err != nil {
			return schedule{}, fail(ErrValidation, op, fmt.Errorf("startTime: %w", err))
		}
	}
	return schedule{start: start, end: end, startTime: t.Format(time.TimeOnly)}, nil
}

type EventService struct {
	users    models.UserRepository
	events   models.EventRepository
	resolver *EntityResolver
	geocoder geocode.Geocoder
	cascade  models.CascadePolicy
}

func NewEventService(
	users models.UserRepository,
	events models.EventRepository,
	resolver *EntityResolver,
	geocoder geocode.Geocoder,
	cascade models.CascadePolicy,
) *EventService {
	return &EventService{users: users, events: events, resolver: resolver, geocoder: geocoder, cascade: cascade}
}

func (s *EventService) List(ctx context.Context, f models.EventFilter) ([]models.Event, error) {
	events, err := s.events.List(ctx, f)
	if err != nil {
		return nil, fail(ErrStorage, "list events", err)
	}
	return events, nil
}

func (s *EventService) Get(ctx context.Context, id string) (models.Event, error) {
	if err := uuid.Validate(id); err != nil {
		return models.Event{}, fail(ErrNotFound, "get event", err)
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return models.Event{}, storeErr("get event", err)
	}
	return e, nil
}

// Create runs strictly in order: creator check, geocode, label resolution,
// insert. A failure before resolution leaves nothing behind. A failure after
// it can leave freshly created labels unused; they are harmless and reused
// by the next event naming them.
func (s *EventService) Create(ctx context.Context, in EventInput, creatorID int64) (models.Event, error) {
	const op = "create event"
	if err := validateInput(op, in); err != nil {
		return models.Event{}, err
	}
	sch, err := parseSchedule(op, in.StartDate, in.EndDate, in.StartTime)
	if err != nil {
		return models.Event{}, err
	}

	if _, err := s.users.GetByID(ctx, creatorID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Event{}, fail(ErrUnknownUser, op, err)
		}
		return models.Event{}, fail(ErrStorage, op, err)
	}

	coords, err := s.geocoder.Geocode(ctx, in.Address)
	if err != nil {
		return models.Event{}, fail(ErrGeocodeUnavailable, op, err)
	}

	cityID, err := s.resolver.Resolve(ctx, models.KindCity, in.City)
	if err != nil {
		return models.Event{}, err
	}
	prefectureID, err := s.resolver.Resolve(ctx, models.KindPrefecture, in.Prefecture)
	if err != nil {
		return models.Event{}, err
	}
	categoryID, err := s.resolver.Resolve(ctx, models.KindCategory, in.Category)
	if err != nil {
		return models.Event{}, err
	}

	e := models.Event{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Description:  in.Description,
		Address:      in.Address,
		Lat:          coords.Lat,
		Lng:          coords.Lng,
		StartDate:    sch.start,
		EndDate:      sch.end,
		StartTime:    sch.startTime,
		Images:       in.Images,
		CityID:       cityID,
		PrefectureID: prefectureID,
		CategoryID:   categoryID,
		UserID:       creatorID,
	}
	if err := s.events.Create(ctx, &e); err != nil {
		if errors.Is(err, models.ErrForeignKey) {
			// Creator deleted between the check and the insert.
			return models.Event{}, fail(ErrUnknownUser, op, err)
		}
		return models.Event{}, fail(ErrStorage, op, err)
	}
	return e, nil
}

// Update checks ownership before geocoding, so a non-owner never triggers
// the external call. Concurrent updates are last-writer-wins.
func (s *EventService) Update(ctx context.Context, id string, in EventUpdate, requesterID int64) (models.Event, error) {
	const op = "update event"
	if err := validateInput(op, in); err != nil {
		return models.Event{}, err
	}
	sch, err := parseSchedule(op, in.StartDate, in.EndDate, in.StartTime)
	if err != nil {
		return models.Event{}, err
	}

	e, err := s.loadOwned(ctx, op, id, requesterID)
	if err != nil {
		return models.Event{}, err
	}

	coords, err := s.geocoder.Geocode(ctx, in.Address)
	if err != nil {
		return models.Event{}, fail(ErrGeocodeUnavailable, op, err)
	}

	e.Title = in.Title
	e.Description = in.Description
	e.Address = in.Address
	e.Lat, e.Lng = coords.Lat, coords.Lng
	e.StartDate, e.EndDate, e.StartTime = sch.start, sch.end, sch.startTime

	if err := s.events.Update(ctx, &e); err != nil {
		return models.Event{}, storeErr(op, err)
	}
	return e, nil
}

// Delete removes the event together with the dependents named by the
// service's cascade policy, in one transaction.
func (s *EventService) Delete(ctx context.Context, id string, requesterID int64) error {
	const op = "delete event"
	if _, err := s.loadOwned(ctx, op, id, requesterID); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id, s.cascade); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (s *EventService) loadOwned(ctx context.Context, op, id string, requesterID int64) (models.Event, error) {
	if err := uuid.Validate(id); err != nil {
		return models.Event{}, fail(ErrNotFound, op, err)
	}
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return models.Event{}, storeErr(op, err)
	}
	if requesterID == 0 || e.UserID != requesterID {
		return models.Event{}, fail(ErrForbidden, op, fmt.Errorf("user %d does not own event %s", requesterID, id))
	}
	return e, nil
}
