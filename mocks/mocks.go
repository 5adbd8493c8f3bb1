// Package mocks holds in-memory stand-ins for the repositories and outside
// services, safe for concurrent use.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"localevents/geocode"
	"localevents/models"
	"localevents/notify"
)

/* ---------- users ---------- */

type MockUserRepo struct {
	mu     sync.Mutex
	Users  map[int64]models.User
	nextID int64
	Err    error // returned by every call when set
}

func NewUserRepo() *MockUserRepo { return &MockUserRepo{Users: map[int64]models.User{}} }

func (m *MockUserRepo) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, x := range m.Users {
		if x.Email == u.Email {
			return fmt.Errorf("%w: users_email_key", models.ErrDuplicate)
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	m.Users[u.ID] = *u
	return nil
}

// Put stores u as is, for seeding.
func (m *MockUserRepo) Put(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID > m.nextID {
		m.nextID = u.ID
	}
	m.Users[u.ID] = u
}

func (m *MockUserRepo) Get(id int64) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Users[id]
}

func (m *MockUserRepo) GetByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.User{}, m.Err
	}
	u, ok := m.Users[id]
	if !ok {
		return models.User{}, models.ErrNotFound
	}
	return u, nil
}

func (m *MockUserRepo) GetByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.User{}, m.Err
	}
	for _, u := range m.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

func (m *MockUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Password = hash
	m.Users[id] = u
	return nil
}

func (m *MockUserRepo) SetResetToken(_ context.Context, id int64, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiration = &expiresAt
	m.Users[id] = u
	return nil
}

func tokenValid(u models.User, token string, now time.Time) bool {
	return u.ResetToken != nil && *u.ResetToken == token &&
		u.ResetTokenExpiration != nil && u.ResetTokenExpiration.After(now)
}

func (m *MockUserRepo) FindByResetToken(_ context.Context, token string, now time.Time) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.Users {
		if tokenValid(u, token, now) {
			return u, nil
		}
	}
	return models.User{}, models.ErrNotFound
}

func (m *MockUserRepo) ConsumeResetToken(_ context.Context, id int64, token, hash string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok || !tokenValid(u, token, now) {
		return models.ErrNotFound
	}
	u.Password = hash
	u.ResetToken, u.ResetTokenExpiration = nil, nil
	m.Users[id] = u
	return nil
}

/* ---------- labels ---------- */

// MockLabelRepo mimics the UNIQUE(label) constraint of the label tables.
type MockLabelRepo struct {
	mu      sync.Mutex
	rows    map[models.LabelKind]map[string]int64
	nextID  int64
	Inserts int // insert attempts, including conflicting ones
	Err     error

	// InsertBarrier, when set, holds every InsertLabel caller until all
	// participants have arrived, forcing a find-then-insert race.
	InsertBarrier *Barrier
}

func NewLabelRepo() *MockLabelRepo {
	return &MockLabelRepo{rows: map[models.LabelKind]map[string]int64{}}
}

func (m *MockLabelRepo) FindLabel(_ context.Context, kind models.LabelKind, label string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	id, ok := m.rows[kind][label]
	if !ok {
		return 0, models.ErrNotFound
	}
	return id, nil
}

func (m *MockLabelRepo) InsertLabel(_ context.Context, kind models.LabelKind, label string) (int64, error) {
	if m.InsertBarrier != nil {
		m.InsertBarrier.Wait()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inserts++
	if m.Err != nil {
		return 0, m.Err
	}
	if m.rows[kind] == nil {
		m.rows[kind] = map[string]int64{}
	}
	if _, ok := m.rows[kind][label]; ok {
		return 0, fmt.Errorf("%w: %s.label", models.ErrDuplicate, kind)
	}
	m.nextID++
	m.rows[kind][label] = m.nextID
	return m.nextID, nil
}

// Count returns the number of rows of kind.
func (m *MockLabelRepo) Count(kind models.LabelKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[kind])
}

// Barrier releases its callers once n of them are waiting. Single use.
type Barrier struct{ wg sync.WaitGroup }

func NewBarrier(n int) *Barrier {
	b := &Barrier{}
	b.wg.Add(n)
	return b
}

func (b *Barrier) Wait() {
	b.wg.Done()
	b.wg.Wait()
}

/* ---------- events ---------- */

type MockEventRepo struct {
	mu          sync.Mutex
	Items       map[string]models.Event
	Reports     *MockReportRepo  // cleared on cascade when set
	Comments    *MockCommentRepo // cleared on cascade when set
	Labels      *MockLabelRepo   // used by label-name filters
	LastCascade *models.CascadePolicy
	Err         error
}

func NewEventRepo() *MockEventRepo { return &MockEventRepo{Items: map[string]models.Event{}} }

func (m *MockEventRepo) Put(e models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[e.ID] = e
}

func (m *MockEventRepo) Get(id string) (models.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Items[id]
	return e, ok
}

func (m *MockEventRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Items)
}

func (m *MockEventRepo) labelID(kind models.LabelKind, label string) int64 {
	if m.Labels == nil {
		return -1
	}
	id, err := m.Labels.FindLabel(context.Background(), kind, label)
	if err != nil {
		return -1
	}
	return id
}

func (m *MockEventRepo) List(_ context.Context, f models.EventFilter) ([]models.Event, error) {
	cityID, prefID, catID := f.CityID, f.PrefectureID, f.CategoryID
	if f.City != "" {
		cityID = m.labelID(models.KindCity, f.City)
	}
	if f.Prefecture != "" {
		prefID = m.labelID(models.KindPrefecture, f.Prefecture)
	}
	if f.Category != "" {
		catID = m.labelID(models.KindCategory, f.Category)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Event, 0, len(m.Items))
	for _, e := range m.Items {
		switch {
		case cityID != 0 && e.CityID != cityID,
			prefID != 0 && e.PrefectureID != prefID,
			catID != 0 && e.CategoryID != catID,
			f.UserID != 0 && e.UserID != f.UserID,
			f.StartDate != nil && !e.StartDate.Equal(*f.StartDate):
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (m *MockEventRepo) GetByID(_ context.Context, id string) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return models.Event{}, m.Err
	}
	e, ok := m.Items[id]
	if !ok {
		return models.Event{}, models.ErrNotFound
	}
	return e, nil
}

func (m *MockEventRepo) Create(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Items[e.ID]; ok {
		return models.ErrDuplicate
	}
	m.Items[e.ID] = *e
	return nil
}

func (m *MockEventRepo) Update(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Items[e.ID]; !ok {
		return models.ErrNotFound
	}
	m.Items[e.ID] = *e
	return nil
}

func (m *MockEventRepo) Delete(_ context.Context, id string, cascade models.CascadePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.Items[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.Items, id)
	m.LastCascade = &cascade
	if cascade.Reports && m.Reports != nil {
		m.Reports.deleteEvent(id)
	}
	if cascade.Comments && m.Comments != nil {
		m.Comments.deleteEvent(id)
	}
	return nil
}

/* ---------- reports ---------- */

type MockReportRepo struct {
	mu       sync.Mutex
	Pairs    map[string]models.Report // "userId:eventId"
	CountErr error
}

func NewReportRepo() *MockReportRepo { return &MockReportRepo{Pairs: map[string]models.Report{}} }

func key(uid int64, eid string) string { return fmt.Sprintf("%d:%s", uid, eid) }

func (m *MockReportRepo) Add(_ context.Context, uid int64, eid string) (models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(uid, eid)
	if _, ok := m.Pairs[k]; ok {
		return models.Report{}, fmt.Errorf("%w: reports_pkey", models.ErrDuplicate)
	}
	r := models.Report{UserID: uid, EventID: eid, CreatedAt: time.Now()}
	m.Pairs[k] = r
	return r, nil
}

func (m *MockReportRepo) CountByEvent(_ context.Context, eid string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	n := 0
	for _, r := range m.Pairs {
		if r.EventID == eid {
			n++
		}
	}
	return n, nil
}

func (m *MockReportRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Pairs)
}

func (m *MockReportRepo) deleteEvent(eid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.Pairs {
		if r.EventID == eid {
			delete(m.Pairs, k)
		}
	}
}

/* ---------- comments ---------- */

type MockCommentRepo struct {
	mu     sync.Mutex
	Items  map[int64]models.Comment
	nextID int64
}

func NewCommentRepo() *MockCommentRepo { return &MockCommentRepo{Items: map[int64]models.Comment{}} }

func (m *MockCommentRepo) Create(_ context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	m.Items[c.ID] = *c
	return nil
}

func (m *MockCommentRepo) GetByID(_ context.Context, id int64) (models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Items[id]
	if !ok {
		return models.Comment{}, models.ErrNotFound
	}
	return c, nil
}

func (m *MockCommentRepo) ListByEvent(_ context.Context, eid string) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Comment{}
	for _, c := range m.Items {
		if c.EventID != nil && *c.EventID == eid {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockCommentRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Items[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.Items, id)
	return nil
}

func (m *MockCommentRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Items)
}

func (m *MockCommentRepo) deleteEvent(eid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.Items {
		if c.EventID != nil && *c.EventID == eid {
			delete(m.Items, id)
		}
	}
}

/* ---------- outside services ---------- */

// FakeGeocoder answers every address with Coords, or fails with Err.
type FakeGeocoder struct {
	mu     sync.Mutex
	Coords geocode.Coordinates
	Err    error
	Calls  int
}

func (g *FakeGeocoder) Geocode(_ context.Context, address string) (geocode.Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls++
	if g.Err != nil {
		return geocode.Coordinates{}, g.Err
	}
	return g.Coords, nil
}

func (g *FakeGeocoder) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Calls
}

// ErrGeocode is a ready-made provider failure.
var ErrGeocode = fmt.Errorf("%w: provider down", geocode.ErrUnavailable)

// RecordingNotifier keeps every message instead of sending it.
type RecordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *RecordingNotifier) Notify(m notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, m)
}

func (n *RecordingNotifier) Messages() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

func (n *RecordingNotifier) Count(kind notify.Kind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.msgs {
		if m.Kind == kind {
			c++
		}
	}
	return c
}

// Last returns the most recent message of kind.
func (n *RecordingNotifier) Last(kind notify.Kind) (notify.Message, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.msgs) - 1; i >= 0; i-- {
		if n.msgs[i].Kind == kind {
			return n.msgs[i], nil
		}
	}
	return notify.Message{}, errors.New("no message of kind " + string(kind))
}

// MockDeliveryLog keeps deliveries in memory, newest last.
type MockDeliveryLog struct {
	mu    sync.Mutex
	Items []notify.Delivery
}

func (l *MockDeliveryLog) Record(_ context.Context, d notify.Delivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Items = append(l.Items, d)
	return nil
}

func (l *MockDeliveryLog) ListByRecipient(_ context.Context, to string, limit int64) ([]notify.Delivery, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []notify.Delivery{}
	for i := len(l.Items) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if l.Items[i].To == to {
			out = append(out, l.Items[i])
		}
	}
	return out, nil
}

var (
	_ models.UserRepository    = (*MockUserRepo)(nil)
	_ models.LabelRepository   = (*MockLabelRepo)(nil)
	_ models.EventRepository   = (*MockEventRepo)(nil)
	_ models.ReportRepository  = (*MockReportRepo)(nil)
	_ models.CommentRepository = (*MockCommentRepo)(nil)
	_ geocode.Geocoder         = (*FakeGeocoder)(nil)
	_ notify.Notifier          = (*RecordingNotifier)(nil)
	_ notify.DeliveryLog       = (*MockDeliveryLog)(nil)
)
