package service

import (
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/notification"
	"github.com/Freeeeeet/tutor_schedule/internal/repository/memory"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	studentID      int64 = 1
	teacherID      int64 = 2
	otherTeacherID int64 = 3
	otherStudentID int64 = 4
	courseID       int64 = 10
	catalogPackage int64 = 100
	packageID      int64 = 50
)

var (
	// среда 10:00 и четверг 10:00 UTC
	wedTen = 2*model.MsPerDay + 10*model.MsPerHour
	thuTen = 3*model.MsPerDay + 10*model.MsPerHour
)

type eventRecorder struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *eventRecorder) Publish(e notification.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []notification.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *eventRecorder) ofType(t notification.EventType) []notification.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type fixture struct {
	store  *memory.Store
	events *eventRecorder
	svc    *RegularCalendarService
	now    time.Time
}

// newFixture: среда 14 октября 2026, 09:00 UTC; студент и два учителя свободны в среду и четверг в 10:00,
// у студента оплаченный активный пакет на 8 занятий
func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()

	f := &fixture{
		store:  memory.NewStore(),
		events: &eventRecorder{},
		now:    time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
	}

	f.store.Users.Put(&model.User{ID: studentID, Role: model.UserRoleStudent, FullName: "Иван Петров", RegularTimes: []int64{wedTen, thuTen}})
	f.store.Users.Put(&model.User{ID: otherStudentID, Role: model.UserRoleStudent, FullName: "Анна Смирнова", RegularTimes: []int64{wedTen, thuTen}})
	f.store.Users.Put(&model.User{ID: teacherID, Role: model.UserRoleTeacher, FullName: "Мария Иванова", RegularTimes: []int64{wedTen, thuTen}})
	f.store.Users.Put(&model.User{ID: otherTeacherID, Role: model.UserRoleTeacher, FullName: "Олег Сидоров", RegularTimes: []int64{thuTen}})
	f.store.Courses.Put(&model.Course{ID: courseID, Name: "English", PackageIDs: []int64{catalogPackage}, IsActive: true})
	f.store.OrderedPackages.Put(f.activePackage(packageID, studentID, 8))

	o := Options{Clock: func() time.Time { return f.now }}
	for _, opt := range opts {
		opt(&o)
	}
	f.svc = NewRegularCalendarService(storesOf(f.store), f.events, o, zap.NewNop())

	return f
}

func storesOf(m *memory.Store) Stores {
	return Stores{
		RegularCalendars: m.RegularCalendars,
		Bookings:         m.Bookings,
		Users:            m.Users,
		Courses:          m.Courses,
		OrderedPackages:  m.OrderedPackages,
		Reservations:     m.Reservations,
		Counters:         m.Counters,
	}
}

// activePackage оплаченный пакет, активированный 10 дней назад на 90 дней
func (f *fixture) activePackage(id, owner int64, classes int) *model.OrderedPackage {
	activated := f.now.AddDate(0, 0, -10)
	return &model.OrderedPackage{
		ID:                  id,
		UserID:              owner,
		PackageID:           catalogPackage,
		PackageName:         "10 занятий",
		NumberClass:         classes,
		OriginalNumberClass: 10,
		ActivationDate:      &activated,
		DayOfUse:            90,
		OrderID:             &id,
		Order: &model.Order{
			ID:         id,
			Status:     model.OrderStatusPaid,
			TotalPrice: decimal.NewFromInt(10000),
			PaidAmount: decimal.NewFromInt(10000),
		},
	}
}

// expiredPackage пакет, срок которого закончился вчера
func (f *fixture) expiredPackage(id, owner int64, classes int) *model.OrderedPackage {
	p := f.activePackage(id, owner, classes)
	activated := f.now.AddDate(0, 0, -31)
	p.ActivationDate = &activated
	p.DayOfUse = 30
	return p
}

func (f *fixture) createInput() CreateInput {
	return CreateInput{
		StudentID:        studentID,
		TeacherID:        teacherID,
		CourseID:         courseID,
		OrderedPackageID: packageID,
		RegularStartTime: wedTen,
	}
}

// putSlot кладёт расписание напрямую, минуя проверки
func (f *fixture) putSlot(id int64, status model.RegularCalendarStatus, pkgID int64) *model.RegularCalendar {
	rc := &model.RegularCalendar{
		ID:               id,
		StudentID:        studentID,
		TeacherID:        teacherID,
		CourseID:         courseID,
		OrderedPackageID: pkgID,
		RegularStartTime: wedTen,
		Status:           status,
		Alerted:          []model.AlertKind{},
	}
	f.store.RegularCalendars.Put(rc)
	return rc
}

func (f *fixture) putBooking(rc *model.RegularCalendar, start time.Time, status model.BookingStatus, regular bool) *model.Booking {
	b := &model.Booking{
		StudentID:        rc.StudentID,
		TeacherID:        rc.TeacherID,
		CourseID:         rc.CourseID,
		OrderedPackageID: rc.OrderedPackageID,
		Status:           status,
		StartTime:        start,
		EndTime:          start.Add(model.DefaultLessonDuration),
		IsRegularBooking: regular,
	}
	f.store.Bookings.Put(b)
	return b
}

func ptr[T any](v T) *T {
	return &v
}
