package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

const (
	testStudentID = "0c7f5f4e-8a3d-4f6e-9d2b-1a2b3c4d5e6f"
	testCourseID  = "9b8a7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

type mockEnrollmentRepo struct {
	enrollment    *models.Enrollment
	findErr       error
	exists        bool
	existsErr     error
	created       *models.Enrollment
	createErr     error
	updatedStatus models.EnrollmentStatus
	updateCalled  bool
	deletedID     string
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.enrollment, nil
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return &models.EnrollmentDetail{Enrollment: *m.enrollment}, nil
}

func (m *mockEnrollmentRepo) ExistsNonCancelled(ctx context.Context, studentID, courseID string) (bool, error) {
	return m.exists, m.existsErr
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	enrollment.ID = "enr-new"
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	m.updateCalled = true
	m.updatedStatus = status
	return nil
}

func (m *mockEnrollmentRepo) SoftDelete(ctx context.Context, id string) error {
	m.deletedID = id
	return nil
}

type mockEnrollmentStudents struct {
	student *models.Student
	err     error
}

func (m *mockEnrollmentStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.student, nil
}

func (m *mockEnrollmentStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.student, nil
}

type mockCourseReader struct {
	course *models.Course
	err    error
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.course, nil
}

type mockDocumentChecker struct {
	approved bool
	err      error
	called   bool
}

func (m *mockDocumentChecker) AllMandatoryApproved(ctx context.Context, studentID string) (bool, error) {
	m.called = true
	return m.approved, m.err
}

func newEnrollmentService(repo *mockEnrollmentRepo, docs *mockDocumentChecker, requireApproval bool) *EnrollmentService {
	students := &mockEnrollmentStudents{student: &models.Student{ID: testStudentID}}
	courses := &mockCourseReader{course: &models.Course{ID: testCourseID, Name: "Administracao"}}
	return NewEnrollmentService(repo, students, courses, docs, &mockAuditor{}, requireApproval, validator.New(), zap.NewNop())
}

func TestEnrollmentCreateStartsPending(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	enrollment, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: testStudentID, CourseID: testCourseID})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.Equal(t, testStudentID, repo.created.StudentID)
}

func TestEnrollmentCreateRejectsDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{exists: true}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: testStudentID, CourseID: testCourseID})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestEnrollmentCreateValidatesIDs(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{StudentID: "not-a-uuid", CourseID: testCourseID})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.NotEmpty(t, appErr.Details)
}

func TestUpdateStatusAppliesLegalTransition(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusPending}}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	enrollment, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{Status: "ACTIVE"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Equal(t, models.EnrollmentStatusActive, repo.updatedStatus)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusCancelled}}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	_, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{Status: "COMPLETED"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "CANCELLED")
	assert.False(t, repo.updateCalled)
}

func TestUpdateStatusActivatesFromAnyStateWhenGateOff(t *testing.T) {
	for _, from := range []models.EnrollmentStatus{
		models.EnrollmentStatusCancelled,
		models.EnrollmentStatusCompleted,
		models.EnrollmentStatusReenrollment,
	} {
		repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", StudentID: testStudentID, Status: from}}
		svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

		enrollment, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{Status: "ACTIVE"})
		require.NoError(t, err, "activation from %s must succeed with vetting off", from)
		assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
		assert.True(t, repo.updateCalled)
	}
}

func TestUpdateStatusActivationStaysStrictWhenGateOn(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusCancelled}}
	docs := &mockDocumentChecker{approved: true}
	svc := newEnrollmentService(repo, docs, true)

	_, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{Status: "ACTIVE"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.False(t, docs.called)
	assert.False(t, repo.updateCalled)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusPending}}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	_, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{Status: "FROZEN"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestActivationGateBlocksWithoutApprovedDocuments(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusPending}}
	docs := &mockDocumentChecker{approved: false}
	svc := newEnrollmentService(repo, docs, true)

	_, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{Status: "ACTIVE"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.True(t, docs.called)
	assert.False(t, repo.updateCalled)
}

func TestActivationGatePassesWhenDocumentsApproved(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusPending}}
	docs := &mockDocumentChecker{approved: true}
	svc := newEnrollmentService(repo, docs, true)

	enrollment, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{Status: "ACTIVE"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
}

func TestActivationGateIgnoredWhenDisabled(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", StudentID: testStudentID, Status: models.EnrollmentStatusPending}}
	docs := &mockDocumentChecker{approved: false}
	svc := newEnrollmentService(repo, docs, false)

	_, err := svc.UpdateStatus(context.Background(), "enr-1", "admin-1", UpdateEnrollmentStatusRequest{Status: "ACTIVE"})
	require.NoError(t, err)
	assert.False(t, docs.called)
}

func TestDeleteCancelsEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusActive}}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	err := svc.Delete(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", repo.deletedID)
}

func TestDeleteRejectsCompletedEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", Status: models.EnrollmentStatusCompleted}}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	err := svc.Delete(context.Background(), "enr-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.Empty(t, repo.deletedID)
}

func TestDeleteNotFound(t *testing.T) {
	repo := &mockEnrollmentRepo{findErr: sql.ErrNoRows}
	svc := newEnrollmentService(repo, &mockDocumentChecker{}, false)

	err := svc.Delete(context.Background(), "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
