package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/notification"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
)

// Хранилища, с которыми работает сервис. Реализации: repository (Postgres) и repository/memory.
type (
	RegularCalendarStore interface {
		Create(ctx context.Context, rc *model.RegularCalendar) error
		GetByID(ctx context.Context, id int64) (*model.RegularCalendar, error)
		List(ctx context.Context, filter repository.RegularCalendarFilter) ([]*model.RegularCalendar, int64, error)
		ListByStatuses(ctx context.Context, statuses ...model.RegularCalendarStatus) ([]*model.RegularCalendar, error)
		FindConflicting(ctx context.Context, teacherID, studentID, regularStartTime, excludeID int64) ([]*model.RegularCalendar, error)
		Update(ctx context.Context, rc *model.RegularCalendar) error
		UpdateAutoSchedule(ctx context.Context, rc *model.RegularCalendar) error
		Delete(ctx context.Context, id int64) (bool, error)
	}

	BookingStore interface {
		Create(ctx context.Context, booking *model.Booking) error
		List(ctx context.Context, filter repository.BookingFilter) ([]*model.Booking, error)
		Exists(ctx context.Context, filter repository.BookingFilter) (bool, error)
		UpdateStatus(ctx context.Context, id int64, status model.BookingStatus, reason string) error
	}

	UserStore interface {
		GetByID(ctx context.Context, id int64) (*model.User, error)
	}

	CourseStore interface {
		GetByID(ctx context.Context, id int64) (*model.Course, error)
	}

	OrderedPackageStore interface {
		GetByID(ctx context.Context, id int64) (*model.OrderedPackage, error)
	}

	ReservationStore interface {
		FindApprovedCovering(ctx context.Context, studentID int64, at time.Time) (*model.ReservationRequest, error)
	}

	CounterStore interface {
		NextID(ctx context.Context, name string) (int64, error)
	}

	// EventPublisher очередь доменных событий; Publish не блокирует
	EventPublisher interface {
		Publish(event notification.Event)
	}
)

// Stores все зависимости хранения одним значением
type Stores struct {
	RegularCalendars RegularCalendarStore
	Bookings         BookingStore
	Users            UserStore
	Courses          CourseStore
	OrderedPackages  OrderedPackageStore
	Reservations     ReservationStore
	Counters         CounterStore
}

// Clock источник текущего времени
type Clock func() time.Time
