// Package memory хранилище в памяти с той же семантикой, что и репозитории Postgres.
// Используется в тестах и для локального запуска без базы.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
	"github.com/jackc/pgx/v5"
)

// Store набор in-memory репозиториев
type Store struct {
	RegularCalendars *RegularCalendars
	Bookings         *Bookings
	Users            *Users
	Courses          *Courses
	OrderedPackages  *OrderedPackages
	Reservations     *Reservations
	Counters         *Counters
}

func NewStore() *Store {
	return &Store{
		RegularCalendars: &RegularCalendars{items: make(map[int64]*model.RegularCalendar)},
		Bookings:         &Bookings{items: make(map[int64]*model.Booking)},
		Users:            &Users{items: make(map[int64]*model.User)},
		Courses:          &Courses{items: make(map[int64]*model.Course)},
		OrderedPackages:  &OrderedPackages{items: make(map[int64]*model.OrderedPackage)},
		Reservations:     &Reservations{},
		Counters:         &Counters{seq: make(map[string]int64)},
	}
}

// =============================================================================
// REGULAR CALENDARS
// =============================================================================

type RegularCalendars struct {
	mu    sync.RWMutex
	items map[int64]*model.RegularCalendar

	// UpdateHook позволяет тестам подменить результат Update
	UpdateHook func(rc *model.RegularCalendar) error
}

func (s *RegularCalendars) Create(_ context.Context, rc *model.RegularCalendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[rc.ID]; exists {
		return fmt.Errorf("create regular calendar: %w", repository.ErrDuplicate)
	}
	if s.violatesUniqueLocked(rc) {
		return fmt.Errorf("create regular calendar: %w", repository.ErrDuplicate)
	}

	now := time.Now()
	rc.CreatedAt, rc.UpdatedAt = now, now
	s.items[rc.ID] = rc.Clone()
	return nil
}

// violatesUniqueLocked повторяет частичный уникальный индекс
// (student_id, teacher_id, regular_start_time, course_id) для незавершённых статусов
func (s *RegularCalendars) violatesUniqueLocked(rc *model.RegularCalendar) bool {
	if rc.Status.IsTerminal() {
		return false
	}
	for _, other := range s.items {
		if other.ID == rc.ID || other.Status.IsTerminal() {
			continue
		}
		if other.StudentID == rc.StudentID && other.TeacherID == rc.TeacherID &&
			other.RegularStartTime == rc.RegularStartTime && other.CourseID == rc.CourseID {
			return true
		}
	}
	return false
}

func (s *RegularCalendars) GetByID(_ context.Context, id int64) (*model.RegularCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rc, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return rc.Clone(), nil
}

func (s *RegularCalendars) List(_ context.Context, filter repository.RegularCalendarFilter) ([]*model.RegularCalendar, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*model.RegularCalendar
	for _, rc := range s.items {
		if filter.Match(rc) {
			matched = append(matched, rc.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := int64(len(matched))
	limit, offset := filter.Window()
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], total, nil
}

func (s *RegularCalendars) ListByStatuses(_ context.Context, statuses ...model.RegularCalendarStatus) ([]*model.RegularCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.RegularCalendar
	for _, rc := range s.items {
		if slices.Contains(statuses, rc.Status) {
			out = append(out, rc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *RegularCalendars) FindConflicting(_ context.Context, teacherID, studentID, regularStartTime, excludeID int64) ([]*model.RegularCalendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.RegularCalendar
	for _, rc := range s.items {
		if rc.ID == excludeID || rc.RegularStartTime != regularStartTime || !rc.Status.OccupiesTime() {
			continue
		}
		if rc.TeacherID == teacherID || rc.StudentID == studentID {
			out = append(out, rc.Clone())
		}
	}
	return out, nil
}

func (s *RegularCalendars) Update(_ context.Context, rc *model.RegularCalendar) error {
	if s.UpdateHook != nil {
		if err := s.UpdateHook(rc); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[rc.ID]; !ok {
		return fmt.Errorf("update regular calendar %d: %w", rc.ID, pgx.ErrNoRows)
	}
	if s.violatesUniqueLocked(rc) {
		return fmt.Errorf("update regular calendar: %w", repository.ErrDuplicate)
	}
	s.items[rc.ID] = rc.Clone()
	return nil
}

func (s *RegularCalendars) UpdateAutoSchedule(_ context.Context, rc *model.RegularCalendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[rc.ID]
	if !ok {
		return fmt.Errorf("update regular calendar %d auto schedule: %w", rc.ID, pgx.ErrNoRows)
	}
	fresh := rc.Clone()
	stored.AutoSchedule = fresh.AutoSchedule
	stored.AutoScheduleHistory = fresh.AutoScheduleHistory
	return nil
}

func (s *RegularCalendars) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

// Put кладёт расписание как есть, без проверок (для подготовки тестов)
func (s *RegularCalendars) Put(rc *model.RegularCalendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rc.ID] = rc.Clone()
}

// =============================================================================
// BOOKINGS
// =============================================================================

type Bookings struct {
	mu     sync.RWMutex
	items  map[int64]*model.Booking
	nextID int64
}

func (s *Bookings) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	b.ID = s.nextID
	now := time.Now()
	b.CreatedAt, b.UpdatedAt = now, now
	c := *b
	s.items[b.ID] = &c
	return nil
}

func (s *Bookings) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (s *Bookings) List(_ context.Context, filter repository.BookingFilter) ([]*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Booking
	for _, b := range s.items {
		if filter.Match(b) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (s *Bookings) Exists(ctx context.Context, filter repository.BookingFilter) (bool, error) {
	items, err := s.List(ctx, filter)
	return len(items) > 0, err
}

func (s *Bookings) UpdateStatus(_ context.Context, id int64, status model.BookingStatus, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.items[id]
	if !ok {
		return fmt.Errorf("booking not found")
	}
	b.Status = status
	b.CancelReason = reason
	b.UpdatedAt = time.Now()
	return nil
}

// Put кладёт бронирование с заданным ID
func (s *Bookings) Put(b *model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	} else if b.ID > s.nextID {
		s.nextID = b.ID
	}
	c := *b
	s.items[b.ID] = &c
}

// =============================================================================
// READ-ONLY COLLABORATORS
// =============================================================================

type Users struct {
	mu    sync.RWMutex
	items map[int64]*model.User
}

func (s *Users) GetByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	c := *u
	c.RegularTimes = slices.Clone(u.RegularTimes)
	return &c, nil
}

func (s *Users) Put(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.items[u.ID] = &c
}

type Courses struct {
	mu    sync.RWMutex
	items map[int64]*model.Course
}

func (s *Courses) GetByID(_ context.Context, id int64) (*model.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	cc := *c
	return &cc, nil
}

func (s *Courses) Put(c *model.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := *c
	s.items[c.ID] = &cc
}

type OrderedPackages struct {
	mu    sync.RWMutex
	items map[int64]*model.OrderedPackage
}

func (s *OrderedPackages) GetByID(_ context.Context, id int64) (*model.OrderedPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	return clonePackage(p), nil
}

func (s *OrderedPackages) Put(p *model.OrderedPackage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = clonePackage(p)
}

func clonePackage(p *model.OrderedPackage) *model.OrderedPackage {
	c := *p
	if p.OrderID != nil {
		id := *p.OrderID
		c.OrderID = &id
	}
	if p.Order != nil {
		o := *p.Order
		c.Order = &o
	}
	return &c
}

type Reservations struct {
	mu    sync.RWMutex
	items []model.ReservationRequest
}

func (s *Reservations) FindApprovedCovering(_ context.Context, studentID int64, at time.Time) (*model.ReservationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.items {
		if r.StudentID == studentID && r.IsApproved() && r.Covers(at) {
			c := r
			return &c, nil
		}
	}
	return nil, nil
}

func (s *Reservations) Put(r model.ReservationRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
}

type Counters struct {
	mu  sync.Mutex
	seq map[string]int64
}

func (s *Counters) NextID(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[name]++
	return s.seq[name], nil
}
