package signals

import (
	"context"
	"errors"
	"time"
)

// Domain errors for the signals package.
var (
	// ErrStreakNotFound is returned when a student has no streak record yet.
	ErrStreakNotFound = errors.New("signals: streak not found")

	// ErrRankUnavailable is returned when the rank source cannot serve a
	// percentile right now. Callers degrade to DefaultPercentileRank.
	ErrRankUnavailable = errors.New("signals: percentile rank unavailable")
)

// ActivityReader exposes read-only learning-activity counts owned by the
// main platform. Every method is an independent read; the signal collector
// issues them concurrently. courseID scopes the count to one course when
// non-empty; an empty courseID means platform-wide.
type ActivityReader interface {
	// CountLessonsCompleted returns the number of completed lessons.
	CountLessonsCompleted(ctx context.Context, userID, courseID string) (int, error)

	// CountTestsCompleted returns the number of completed tests.
	CountTestsCompleted(ctx context.Context, userID, courseID string) (int, error)

	// CountProjectsSubmitted returns the number of submitted projects.
	CountProjectsSubmitted(ctx context.Context, userID, courseID string) (int, error)

	// CountCertificates returns the number of earned certificates.
	CountCertificates(ctx context.Context, userID, courseID string) (int, error)

	// CountEnrollments returns the number of course enrollments.
	// Enrollments are inherently platform-wide.
	CountEnrollments(ctx context.Context, userID string) (int, error)

	// CountCompletedCourses returns the number of completed courses.
	// Completed courses are inherently platform-wide.
	CountCompletedCourses(ctx context.Context, userID string) (int, error)

	// CourseProgressPercent returns completion percent (0-100) for the
	// course, or the average across enrolled courses when courseID is empty.
	CourseProgressPercent(ctx context.Context, userID, courseID string) (float64, error)

	// AverageTestScore returns the average test score (0-100), 0 when no
	// tests were taken.
	AverageTestScore(ctx context.Context, userID, courseID string) (float64, error)

	// LastActivityAt returns the most recent activity timestamp, or nil
	// when the student has no recorded activity.
	LastActivityAt(ctx context.Context, userID string) (*time.Time, error)
}

// StreakRepository persists daily-activity streak records.
type StreakRepository interface {
	// Get returns the streak record for a student.
	// Returns ErrStreakNotFound when none exists.
	Get(ctx context.Context, userID string) (*Streak, error)

	// Save inserts or updates the streak record.
	Save(ctx context.Context, streak *Streak) error
}

// RankReader resolves a student's XP percentile rank (0-100).
// Implementations may be backed by a cache and return ErrRankUnavailable
// when degraded; rank data is enrichment, never a hard dependency.
type RankReader interface {
	PercentileRank(ctx context.Context, userID string) (float64, error)
}
