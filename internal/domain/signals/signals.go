// Package signals contains the student activity snapshot consumed by rule
// evaluation. This is a pure domain layer with zero external dependencies.
package signals

// StudentSignals is one immutable snapshot of a student's learning activity,
// computed once per evaluation call and shared by every rule in that call.
// When CourseID is set, the per-course counters are scoped to that course;
// otherwise they are platform-wide.
type StudentSignals struct {
	// UserID identifies the student the snapshot was computed for.
	UserID string

	// CourseID is the optional course scope of the snapshot.
	CourseID string

	// LessonsCompleted is the number of completed lessons.
	LessonsCompleted int

	// TestsCompleted is the number of completed tests.
	TestsCompleted int

	// ProjectsSubmitted is the number of submitted projects.
	ProjectsSubmitted int

	// CourseProgressPercent is the course completion percentage (0-100).
	CourseProgressPercent float64

	// AvgTestScore is the average test score (0-100).
	AvgTestScore float64

	// DaysSinceLastActivity is the floor of whole days elapsed since the
	// last recorded activity; 0 when no activity was ever recorded.
	DaysSinceLastActivity int

	// StreakCount is the current daily activity streak.
	StreakCount int

	// TotalActiveDays is the lifetime count of active calendar days.
	TotalActiveDays int

	// CoursesEnrolled is the number of course enrollments (platform-wide).
	CoursesEnrolled int

	// CoursesCompleted is the number of completed courses (platform-wide).
	CoursesCompleted int

	// CertificatesEarned is the number of earned certificates.
	CertificatesEarned int

	// PercentileRank is the student's XP percentile (0-100) from the
	// leaderboard cache. Nil when the cache is unavailable; consumers fall
	// back to DefaultPercentileRank.
	PercentileRank *float64
}

// DefaultPercentileRank is assumed when no rank data is available.
const DefaultPercentileRank = 50.0

// PercentileRankOrDefault returns the percentile rank, or the default when
// no rank data was collected.
func (s *StudentSignals) PercentileRankOrDefault() float64 {
	if s.PercentileRank == nil {
		return DefaultPercentileRank
	}
	return *s.PercentileRank
}

// Field identifies one attribute of StudentSignals that rule conditions may
// reference. The set is closed: conditions naming anything else evaluate to
// false.
type Field string

const (
	FieldLessonsCompleted      Field = "lessonsCompleted"
	FieldTestsCompleted        Field = "testsCompleted"
	FieldProjectsSubmitted     Field = "projectsSubmitted"
	FieldCourseProgressPercent Field = "courseProgressPercent"
	FieldAvgTestScore          Field = "avgTestScore"
	FieldDaysSinceLastActivity Field = "daysSinceLastActivity"
	FieldStreakCount           Field = "streakCount"
	FieldTotalActiveDays       Field = "totalActiveDays"
	FieldCoursesEnrolled       Field = "coursesEnrolled"
	FieldCoursesCompleted      Field = "coursesCompleted"
	FieldCertificatesEarned    Field = "certificatesEarned"
)

// IsValid checks whether the field names a known signal attribute.
func (f Field) IsValid() bool {
	switch f {
	case FieldLessonsCompleted,
		FieldTestsCompleted,
		FieldProjectsSubmitted,
		FieldCourseProgressPercent,
		FieldAvgTestScore,
		FieldDaysSinceLastActivity,
		FieldStreakCount,
		FieldTotalActiveDays,
		FieldCoursesEnrolled,
		FieldCoursesCompleted,
		FieldCertificatesEarned:
		return true
	default:
		return false
	}
}

// String returns the field name as stored in rule definitions.
func (f Field) String() string {
	return string(f)
}

// Value returns the numeric value of the given field. The second return is
// false for unknown fields, which condition evaluation treats as fail-closed.
func (s *StudentSignals) Value(f Field) (float64, bool) {
	switch f {
	case FieldLessonsCompleted:
		return float64(s.LessonsCompleted), true
	case FieldTestsCompleted:
		return float64(s.TestsCompleted), true
	case FieldProjectsSubmitted:
		return float64(s.ProjectsSubmitted), true
	case FieldCourseProgressPercent:
		return s.CourseProgressPercent, true
	case FieldAvgTestScore:
		return s.AvgTestScore, true
	case FieldDaysSinceLastActivity:
		return float64(s.DaysSinceLastActivity), true
	case FieldStreakCount:
		return float64(s.StreakCount), true
	case FieldTotalActiveDays:
		return float64(s.TotalActiveDays), true
	case FieldCoursesEnrolled:
		return float64(s.CoursesEnrolled), true
	case FieldCoursesCompleted:
		return float64(s.CoursesCompleted), true
	case FieldCertificatesEarned:
		return float64(s.CertificatesEarned), true
	default:
		return 0, false
	}
}
