package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegularCalendarStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to RegularCalendarStatus
		want     bool
	}{
		{RegularCalendarStatusActive, RegularCalendarStatusActiveTeacherRequestCanceling, true},
		{RegularCalendarStatusActive, RegularCalendarStatusExpired, true},
		{RegularCalendarStatusActive, RegularCalendarStatusFinished, false},
		{RegularCalendarStatusActiveTeacherRequestCanceling, RegularCalendarStatusActive, true},
		{RegularCalendarStatusActiveTeacherRequestCanceling, RegularCalendarStatusTeacherCancel, true},
		{RegularCalendarStatusActiveTeacherRequestCanceling, RegularCalendarStatusAdminCancel, true},
		{RegularCalendarStatusActiveTeacherRequestCanceling, RegularCalendarStatusExpired, false},
		{RegularCalendarStatusActiveTeacherRequestCanceling, RegularCalendarStatusFinished, false},
		{RegularCalendarStatusExpired, RegularCalendarStatusActive, true},
		{RegularCalendarStatusExpired, RegularCalendarStatusFinished, true},
		{RegularCalendarStatusExpired, RegularCalendarStatusAdminCancel, false},
		{RegularCalendarStatusFinished, RegularCalendarStatusActive, false},
		{RegularCalendarStatusAdminCancel, RegularCalendarStatusActive, false},
		{RegularCalendarStatusTeacherCancel, RegularCalendarStatusExpired, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestRegularCalendarStatus_Classes(t *testing.T) {
	assert.True(t, RegularCalendarStatusAdminCancel.IsTerminal())
	assert.True(t, RegularCalendarStatusFinished.IsTerminal())
	assert.False(t, RegularCalendarStatusExpired.IsTerminal())

	for _, s := range OccupyingRegularCalendarStatuses {
		assert.True(t, s.OccupiesTime(), s)
	}
	assert.False(t, RegularCalendarStatusFinished.OccupiesTime())

	assert.False(t, RegularCalendarStatus("PAUSED").IsValid())
	assert.True(t, RegularCalendarStatusExpired.IsValid())
}

func TestRegularCalendar_CloneIsDeep(t *testing.T) {
	rc := &RegularCalendar{
		ID:                  1,
		Alerted:             []AlertKind{AlertLowClasses},
		AutoSchedule:        &AutoScheduleAttempt{Message: "a"},
		AutoScheduleHistory: AutoScheduleHistory{{Message: "a"}},
		Student:             &User{ID: 2},
	}

	c := rc.Clone()
	c.Alerted[0] = AlertPackageExpiringSoon
	c.AutoSchedule.Message = "b"
	c.AutoScheduleHistory[0].Message = "b"

	assert.Equal(t, AlertLowClasses, rc.Alerted[0])
	assert.Equal(t, "a", rc.AutoSchedule.Message)
	assert.Equal(t, "a", rc.AutoScheduleHistory[0].Message)
	assert.Nil(t, c.Student)
}

func TestRegularCalendar_MarkAlerted(t *testing.T) {
	rc := &RegularCalendar{}
	rc.MarkAlerted(AlertLowClasses)
	rc.MarkAlerted(AlertLowClasses)

	require.Len(t, rc.Alerted, 1)
	assert.True(t, rc.HasAlert(AlertLowClasses))
	assert.False(t, rc.HasAlert(AlertPackageExpiringSoon))
}
