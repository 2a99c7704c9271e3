package memory

import (
	"context"
	"testing"

	"github.com/Freeeeeet/tutor_schedule/internal/model"
	"github.com/Freeeeeet/tutor_schedule/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegularCalendars_UniqueIndex(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	first := &model.RegularCalendar{ID: 1, StudentID: 1, TeacherID: 2, CourseID: 3, RegularStartTime: 0, Status: model.RegularCalendarStatusActive}
	require.NoError(t, store.RegularCalendars.Create(ctx, first))

	dup := &model.RegularCalendar{ID: 2, StudentID: 1, TeacherID: 2, CourseID: 3, RegularStartTime: 0, Status: model.RegularCalendarStatusActive}
	err := store.RegularCalendars.Create(ctx, dup)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// завершённое расписание не мешает новому
	first.Status = model.RegularCalendarStatusFinished
	require.NoError(t, store.RegularCalendars.Update(ctx, first))
	assert.NoError(t, store.RegularCalendars.Create(ctx, dup))
}

func TestRegularCalendars_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.RegularCalendars.Put(&model.RegularCalendar{ID: 1, Status: model.RegularCalendarStatusActive})

	got, err := store.RegularCalendars.GetByID(ctx, 1)
	require.NoError(t, err)
	got.Status = model.RegularCalendarStatusFinished

	again, err := store.RegularCalendars.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.RegularCalendarStatusActive, again.Status)

	missing, err := store.RegularCalendars.GetByID(ctx, 99)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRegularCalendars_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	rc := &model.RegularCalendar{ID: 7, Status: model.RegularCalendarStatusActive}

	assert.ErrorIs(t, store.RegularCalendars.Update(ctx, rc), pgx.ErrNoRows)
	assert.ErrorIs(t, store.RegularCalendars.UpdateAutoSchedule(ctx, rc), pgx.ErrNoRows)
}

func TestRegularCalendars_ListPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for id := int64(1); id <= 5; id++ {
		store.RegularCalendars.Put(&model.RegularCalendar{ID: id, TeacherID: 7, Status: model.RegularCalendarStatusActive})
	}

	items, total, err := store.RegularCalendars.List(ctx, repository.RegularCalendarFilter{TeacherID: repository.Ptr(int64(7)), Page: 2, PageSize: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), items[0].ID)
	assert.Equal(t, int64(2), items[1].ID)
}

func TestCounters_Monotonic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	a, _ := store.Counters.NextID(ctx, "regular_calendar")
	b, _ := store.Counters.NextID(ctx, "regular_calendar")
	c, _ := store.Counters.NextID(ctx, "other")

	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(2), b)
	assert.Equal(t, int64(1), c)
}
