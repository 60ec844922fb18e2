package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudentSignals_Value(t *testing.T) {
	s := &StudentSignals{
		LessonsCompleted:      12,
		TestsCompleted:        5,
		ProjectsSubmitted:     2,
		CourseProgressPercent: 62.5,
		AvgTestScore:          88.4,
		DaysSinceLastActivity: 4,
		StreakCount:           7,
		TotalActiveDays:       40,
		CoursesEnrolled:       3,
		CoursesCompleted:      1,
		CertificatesEarned:    1,
	}

	cases := []struct {
		field Field
		want  float64
	}{
		{FieldLessonsCompleted, 12},
		{FieldTestsCompleted, 5},
		{FieldProjectsSubmitted, 2},
		{FieldCourseProgressPercent, 62.5},
		{FieldAvgTestScore, 88.4},
		{FieldDaysSinceLastActivity, 4},
		{FieldStreakCount, 7},
		{FieldTotalActiveDays, 40},
		{FieldCoursesEnrolled, 3},
		{FieldCoursesCompleted, 1},
		{FieldCertificatesEarned, 1},
	}

	for _, tc := range cases {
		got, ok := s.Value(tc.field)
		assert.True(t, ok, "field %s", tc.field)
		assert.Equal(t, tc.want, got, "field %s", tc.field)
	}
}

func TestStudentSignals_ValueUnknownField(t *testing.T) {
	s := &StudentSignals{}

	_, ok := s.Value(Field("xpTotal"))
	assert.False(t, ok)

	assert.False(t, Field("xpTotal").IsValid())
	assert.True(t, FieldStreakCount.IsValid())
}

func TestStudentSignals_PercentileRankOrDefault(t *testing.T) {
	s := &StudentSignals{}
	assert.Equal(t, DefaultPercentileRank, s.PercentileRankOrDefault())

	rank := 93.0
	s.PercentileRank = &rank
	assert.Equal(t, 93.0, s.PercentileRankOrDefault())
}
