package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/secretaria-online/secretaria-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "status", "enrolled_at", "semester", "deleted_at", "created_at", "updated_at", "student_name", "student_registry", "student_cpf", "course_name"}).
		AddRow("enr-1", "stu-1", "course-1", "ACTIVE", time.Now(), nil, nil, time.Now(), time.Now(), "Maria Silva", "2026000123", "12345678901", "Administracao")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.student_id")).
		WithArgs("stu-1", "ACTIVE").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("stu-1", "ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enrollments, total, err := repo.List(context.Background(), models.EnrollmentFilter{
		StudentID: "stu-1",
		Status:    "ACTIVE",
	})
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, 1, total)
	require.Equal(t, "Maria Silva", enrollments[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByIDSkipsDeleted(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT e.id, e.student_id")).
		WithArgs("enr-gone").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "enr-gone")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsNonCancelled(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("stu-1", "course-1", string(models.EnrollmentStatusCancelled)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsNonCancelled(context.Background(), "stu-1", "course-1")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments")).
		WithArgs("stu-2", "course-1", string(models.EnrollmentStatusCancelled)).
		WillReturnError(sql.ErrNoRows)

	exists, err = repo.ExistsNonCancelled(context.Background(), "stu-2", "course-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateFillsDefaults(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{StudentID: "stu-1", CourseID: "course-1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	require.False(t, enrollment.EnrolledAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySoftDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments e SET status = $2, deleted_at = $3")).
		WithArgs("enr-gone", string(models.EnrollmentStatusCancelled), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), "enr-gone")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkActiveAsPending(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments e SET status = $1")).
		WithArgs(string(models.EnrollmentStatusPending), sqlmock.AnyArg(), string(models.EnrollmentStatusActive)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("enr-1").AddRow("enr-2"))
	mock.ExpectCommit()

	ids, err := repo.MarkActiveAsPending(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"enr-1", "enr-2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkActiveAsPendingRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments e SET status = $1")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.MarkActiveAsPending(context.Background())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAcceptReenrollment(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments e SET status = $2")).
		WithArgs("enr-1", string(models.EnrollmentStatusActive), sqlmock.AnyArg(), string(models.EnrollmentStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contracts")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	enrollmentID := "enr-1"
	accepted := time.Now().UTC()
	contract := &models.Contract{
		EnrollmentID: &enrollmentID,
		StudentID:    "stu-1",
		Semester:     1,
		Year:         2026,
		AcceptedAt:   &accepted,
	}
	require.NoError(t, repo.AcceptReenrollment(context.Background(), enrollmentID, contract))
	require.NotEmpty(t, contract.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryAcceptReenrollmentNotPending(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()

	repo := NewEnrollmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments e SET status = $2")).
		WithArgs("enr-1", string(models.EnrollmentStatusActive), sqlmock.AnyArg(), string(models.EnrollmentStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.AcceptReenrollment(context.Background(), "enr-1", &models.Contract{StudentID: "stu-1"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
