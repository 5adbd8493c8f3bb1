package models

import (
	"context"
	"time"
)

type User struct {
	ID                   int64      `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Email                string     `db:"email" json:"email"`
	Password             string     `db:"password" json:"-"`
	ResetToken           *string    `db:"reset_token" json:"-"`
	ResetTokenExpiration *time.Time `db:"reset_token_expiration" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
}

type Event struct {
	ID           string    `db:"id" json:"id"` // UUID
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Address      string    `db:"address" json:"address"`
	Lat          float64   `db:"lat" json:"lat"`
	Lng          float64   `db:"lng" json:"lng"`
	StartDate    time.Time `db:"start_date" json:"startDate"`
	EndDate      time.Time `db:"end_date" json:"endDate"`
	StartTime    string    `db:"start_time" json:"startTime"`
	Images       *string   `db:"images" json:"images,omitempty"`
	CityID       int64     `db:"city_id" json:"cityId"`
	PrefectureID int64     `db:"prefecture_id" json:"prefectureId"`
	CategoryID   int64     `db:"category_id" json:"categoryId"`
	UserID       int64     `db:"user_id" json:"userId"` // creator
}

type Comment struct {
	ID        int64     `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	EventID   *string   `db:"event_id" json:"eventId"`
	UserID    int64     `db:"user_id" json:"userId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Report is keyed by (UserID, EventID).
type Report struct {
	UserID    int64     `db:"user_id" json:"userId"`
	EventID   string    `db:"event_id" json:"eventId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// LabelKind selects one of the canonical label tables.
type LabelKind string

const (
	KindCity       LabelKind = "city"
	KindPrefecture LabelKind = "prefecture"
	KindCategory   LabelKind = "category"
)

// EventFilter narrows List. Zero values are ignored.
type EventFilter struct {
	CityID       int64
	PrefectureID int64
	CategoryID   int64
	City         string
	Prefecture   string
	Category     string
	StartDate    *time.Time
	UserID       int64
}

// CascadePolicy lists the dependents removed together with an event.
type CascadePolicy struct {
	Reports  bool
	Comments bool
}

// ===== Users =====
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error

	// SetResetToken overwrites any previous token of the user.
	SetResetToken(ctx context.Context, id int64, token string, expiresAt time.Time) error
	// FindByResetToken only matches tokens whose expiration is strictly after now.
	FindByResetToken(ctx context.Context, token string, now time.Time) (User, error)
	// ConsumeResetToken stores hash and clears the token in one statement,
	// provided token still belongs to id and has not expired. ErrNotFound otherwise.
	ConsumeResetToken(ctx context.Context, id int64, token, hash string, now time.Time) error
}

// ===== City / Prefecture / Category =====
type LabelRepository interface {
	FindLabel(ctx context.Context, kind LabelKind, label string) (int64, error)
	// InsertLabel returns ErrDuplicate when another row already holds label.
	InsertLabel(ctx context.Context, kind LabelKind, label string) (int64, error)
}

// ===== Events =====
type EventRepository interface {
	List(ctx context.Context, f EventFilter) ([]Event, error)
	GetByID(ctx context.Context, id string) (Event, error)
	Create(ctx context.Context, e *Event) error
	Update(ctx context.Context, e *Event) error
	Delete(ctx context.Context, id string, cascade CascadePolicy) error
}

// ===== Reports =====
type ReportRepository interface {
	// Add relies on PRIMARY KEY(user_id, event_id); a repeat returns ErrDuplicate.
	Add(ctx context.Context, userID int64, eventID string) (Report, error)
	CountByEvent(ctx context.Context, eventID string) (int, error)
}

// ===== Comments =====
type CommentRepository interface {
	Create(ctx context.Context, c *Comment) error
	GetByID(ctx context.Context, id int64) (Comment, error)
	ListByEvent(ctx context.Context, eventID string) ([]Comment, error)
	Delete(ctx context.Context, id int64) error
}
