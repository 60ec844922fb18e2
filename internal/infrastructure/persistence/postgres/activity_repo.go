package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY READER
// Читает учебную активность из таблиц основной платформы. Эти таблицы
// (lesson_completions, test_results, project_submissions, certificates,
// course_enrollments) принадлежат платформе, движок их не мигрирует и
// никогда в них не пишет.
// ══════════════════════════════════════════════════════════════════════════════

// ActivityRepository implements signals.ActivityReader over the platform's
// learning-activity tables.
type ActivityRepository struct {
	conn *Connection
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(conn *Connection) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

// CountLessonsCompleted returns the number of completed lessons.
func (r *ActivityRepository) CountLessonsCompleted(ctx context.Context, userID, courseID string) (int, error) {
	return r.scopedCount(ctx, "lesson_completions", userID, courseID)
}

// CountTestsCompleted returns the number of completed tests.
func (r *ActivityRepository) CountTestsCompleted(ctx context.Context, userID, courseID string) (int, error) {
	return r.scopedCount(ctx, "test_results", userID, courseID)
}

// CountProjectsSubmitted returns the number of submitted projects.
func (r *ActivityRepository) CountProjectsSubmitted(ctx context.Context, userID, courseID string) (int, error) {
	return r.scopedCount(ctx, "project_submissions", userID, courseID)
}

// CountCertificates returns the number of earned certificates.
func (r *ActivityRepository) CountCertificates(ctx context.Context, userID, courseID string) (int, error) {
	return r.scopedCount(ctx, "certificates", userID, courseID)
}

// CountEnrollments returns the number of course enrollments.
func (r *ActivityRepository) CountEnrollments(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM course_enrollments WHERE user_id = $1`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

// CountCompletedCourses returns the number of completed courses.
func (r *ActivityRepository) CountCompletedCourses(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM course_enrollments WHERE user_id = $1 AND completed`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed courses: %w", err)
	}
	return count, nil
}

// CourseProgressPercent returns completion percent for the course, or the
// average across enrolled courses when courseID is empty.
func (r *ActivityRepository) CourseProgressPercent(ctx context.Context, userID, courseID string) (float64, error) {
	var (
		progress *float64
		err      error
	)
	if courseID != "" {
		err = r.conn.QueryRow(ctx,
			`SELECT progress_percent FROM course_enrollments WHERE user_id = $1 AND course_id = $2`,
			userID, courseID,
		).Scan(&progress)
		if IsNoRows(err) {
			return 0, nil
		}
	} else {
		err = r.conn.QueryRow(ctx,
			`SELECT AVG(progress_percent) FROM course_enrollments WHERE user_id = $1`,
			userID,
		).Scan(&progress)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read course progress: %w", err)
	}
	if progress == nil {
		return 0, nil
	}
	return *progress, nil
}

// AverageTestScore returns the average test score, 0 when no tests were
// taken.
func (r *ActivityRepository) AverageTestScore(ctx context.Context, userID, courseID string) (float64, error) {
	query := `SELECT AVG(score) FROM test_results WHERE user_id = $1`
	args := []interface{}{userID}
	if courseID != "" {
		query += ` AND course_id = $2`
		args = append(args, courseID)
	}

	var avg *float64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to read average test score: %w", err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}

// LastActivityAt returns the most recent recorded activity across all
// activity sources, or nil when the student never was active.
func (r *ActivityRepository) LastActivityAt(ctx context.Context, userID string) (*time.Time, error) {
	query := `
		SELECT MAX(activity_at) FROM (
			SELECT MAX(completed_at) AS activity_at FROM lesson_completions WHERE user_id = $1
			UNION ALL
			SELECT MAX(completed_at) FROM test_results WHERE user_id = $1
			UNION ALL
			SELECT MAX(submitted_at) FROM project_submissions WHERE user_id = $1
		) activity
	`

	var last *time.Time
	if err := r.conn.QueryRow(ctx, query, userID).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to read last activity: %w", err)
	}
	return last, nil
}

// scopedCount counts rows in an activity table, optionally scoped to a
// course. Table names are fixed call sites, never user input.
func (r *ActivityRepository) scopedCount(ctx context.Context, table, userID, courseID string) (int, error) {
	query := `SELECT COUNT(*) FROM ` + table + ` WHERE user_id = $1`
	args := []interface{}{userID}
	if courseID != "" {
		query += ` AND course_id = $2`
		args = append(args, courseID)
	}

	var count int
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements signals.StreakRepository for PostgreSQL.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

// Get returns the streak record for a student.
func (r *StreakRepository) Get(ctx context.Context, userID string) (*signals.Streak, error) {
	query := `
		SELECT user_id, current_streak, longest_streak, total_active_days, last_activity_at, streak_start_date
		FROM activity_streaks
		WHERE user_id = $1
	`

	var (
		s          signals.Streak
		lastAt     *time.Time
		streakFrom *time.Time
	)
	err := r.conn.QueryRow(ctx, query, userID).Scan(
		&s.UserID,
		&s.CurrentStreak,
		&s.LongestStreak,
		&s.TotalActiveDays,
		&lastAt,
		&streakFrom,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, signals.ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	if lastAt != nil {
		s.LastActivityAt = *lastAt
	}
	if streakFrom != nil {
		s.StreakStartDate = *streakFrom
	}

	return &s, nil
}

// Save inserts or updates the streak record.
func (r *StreakRepository) Save(ctx context.Context, s *signals.Streak) error {
	query := `
		INSERT INTO activity_streaks (user_id, current_streak, longest_streak, total_active_days, last_activity_at, streak_start_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			total_active_days = EXCLUDED.total_active_days,
			last_activity_at = EXCLUDED.last_activity_at,
			streak_start_date = EXCLUDED.streak_start_date,
			updated_at = NOW()
	`

	_, err := r.conn.Exec(ctx, query,
		s.UserID,
		s.CurrentStreak,
		s.LongestStreak,
		s.TotalActiveDays,
		nullTimeIfZero(s.LastActivityAt),
		nullTimeIfZero(s.StreakStartDate),
	)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}

	return nil
}

func nullTimeIfZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
