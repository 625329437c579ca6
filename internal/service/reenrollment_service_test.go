package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

type mockReenrollmentRepo struct {
	detail        *models.EnrollmentDetail
	detailErr     error
	markedIDs     []string
	markErr       error
	markCalled    bool
	acceptErr     error
	acceptedID    string
	savedContract *models.Contract
}

func (m *mockReenrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	return m.detail, nil
}

func (m *mockReenrollmentRepo) MarkActiveAsPending(ctx context.Context) ([]string, error) {
	m.markCalled = true
	if m.markErr != nil {
		return nil, m.markErr
	}
	return m.markedIDs, nil
}

func (m *mockReenrollmentRepo) AcceptReenrollment(ctx context.Context, enrollmentID string, contract *models.Contract) error {
	if m.acceptErr != nil {
		return m.acceptErr
	}
	m.acceptedID = enrollmentID
	m.savedContract = contract
	return nil
}

type mockStudentReader struct {
	student *models.Student
	err     error
}

func (m *mockStudentReader) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.student, nil
}

type mockGate struct {
	ok     bool
	err    error
	called bool
}

func (m *mockGate) VerifyAdminPassword(ctx context.Context, userID, password string) (bool, error) {
	m.called = true
	return m.ok, m.err
}

type mockTemplates struct {
	template *models.ContractTemplate
	err      error
}

func (m *mockTemplates) ActiveTemplate(ctx context.Context) (*models.ContractTemplate, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.template, nil
}

type mockAuditor struct {
	logs []*models.AuditLog
}

func (m *mockAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func pendingDetail() *models.EnrollmentDetail {
	return &models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:        "enr-1",
			StudentID: "stu-1",
			CourseID:  "course-1",
			Status:    models.EnrollmentStatusPending,
		},
		StudentName:     "Maria Silva",
		StudentRegistry: "2026000123",
		StudentCPF:      "12345678901",
		CourseName:      "Administracao",
	}
}

func newReenrollmentService(repo *mockReenrollmentRepo, students *mockStudentReader, gate *mockGate, templates *mockTemplates, audit *mockAuditor) *ReenrollmentService {
	svc := NewReenrollmentService(repo, students, gate, templates, audit, "Secretaria Online", validator.New(), zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestProcessAllSuccess(t *testing.T) {
	repo := &mockReenrollmentRepo{markedIDs: []string{"enr-1", "enr-2", "enr-3"}}
	gate := &mockGate{ok: true}
	audit := &mockAuditor{}
	svc := newReenrollmentService(repo, &mockStudentReader{}, gate, &mockTemplates{}, audit)

	result, err := svc.ProcessAll(context.Background(), "admin-1", ProcessAllRequest{Semester: 1, Year: 2026, AdminPassword: "secret"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalStudents)
	assert.Equal(t, []string{"enr-1", "enr-2", "enr-3"}, result.AffectedEnrollmentIDs)
	assert.True(t, gate.called)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionReenrollAll, audit.logs[0].Action)
}

func TestProcessAllRejectedByGate(t *testing.T) {
	repo := &mockReenrollmentRepo{markedIDs: []string{"enr-1"}}
	gate := &mockGate{ok: false}
	svc := newReenrollmentService(repo, &mockStudentReader{}, gate, &mockTemplates{}, &mockAuditor{})

	_, err := svc.ProcessAll(context.Background(), "admin-1", ProcessAllRequest{Semester: 1, Year: 2026, AdminPassword: "wrong"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
	assert.False(t, repo.markCalled, "batch must not run when the gate rejects")
}

func TestProcessAllValidatesPayload(t *testing.T) {
	repo := &mockReenrollmentRepo{}
	gate := &mockGate{ok: true}
	svc := newReenrollmentService(repo, &mockStudentReader{}, gate, &mockTemplates{}, &mockAuditor{})

	_, err := svc.ProcessAll(context.Background(), "admin-1", ProcessAllRequest{Semester: 3, Year: 2026, AdminPassword: "secret"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.NotEmpty(t, appErr.Details)
	assert.False(t, gate.called)
}

func TestProcessAllEmptyBatch(t *testing.T) {
	repo := &mockReenrollmentRepo{markedIDs: nil}
	svc := newReenrollmentService(repo, &mockStudentReader{}, &mockGate{ok: true}, &mockTemplates{}, &mockAuditor{})

	result, err := svc.ProcessAll(context.Background(), "admin-1", ProcessAllRequest{Semester: 2, Year: 2026, AdminPassword: "secret"})
	require.NoError(t, err)
	assert.Zero(t, result.TotalStudents)
	assert.NotNil(t, result.AffectedEnrollmentIDs)
}

func TestPreviewRendersTemplate(t *testing.T) {
	repo := &mockReenrollmentRepo{detail: pendingDetail()}
	students := &mockStudentReader{student: &models.Student{ID: "stu-1", UserID: "user-1"}}
	templates := &mockTemplates{template: &models.ContractTemplate{Content: "<p>{{studentName}} - {{courseName}} - {{semester}}/{{year}} - {{institutionName}}</p>"}}
	svc := newReenrollmentService(repo, students, &mockGate{}, templates, &mockAuditor{})

	preview, err := svc.Preview(context.Background(), "user-1", "enr-1")
	require.NoError(t, err)
	assert.Equal(t, "<p>Maria Silva - Administracao - 1/2026 - Secretaria Online</p>", preview.ContractHTML)
	assert.Equal(t, "enr-1", preview.EnrollmentID)
	assert.Equal(t, 1, preview.Semester)
	assert.Equal(t, 2026, preview.Year)
}

func TestPreviewRejectsForeignEnrollment(t *testing.T) {
	repo := &mockReenrollmentRepo{detail: pendingDetail()}
	students := &mockStudentReader{student: &models.Student{ID: "stu-other", UserID: "user-2"}}
	svc := newReenrollmentService(repo, students, &mockGate{}, &mockTemplates{}, &mockAuditor{})

	_, err := svc.Preview(context.Background(), "user-2", "enr-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestPreviewRequiresPendingStatus(t *testing.T) {
	detail := pendingDetail()
	detail.Status = models.EnrollmentStatusActive
	repo := &mockReenrollmentRepo{detail: detail}
	students := &mockStudentReader{student: &models.Student{ID: "stu-1", UserID: "user-1"}}
	svc := newReenrollmentService(repo, students, &mockGate{}, &mockTemplates{}, &mockAuditor{})

	_, err := svc.Preview(context.Background(), "user-1", "enr-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "ACTIVE")
}

func TestPreviewEnrollmentNotFound(t *testing.T) {
	repo := &mockReenrollmentRepo{detailErr: sql.ErrNoRows}
	students := &mockStudentReader{student: &models.Student{ID: "stu-1", UserID: "user-1"}}
	svc := newReenrollmentService(repo, students, &mockGate{}, &mockTemplates{}, &mockAuditor{})

	_, err := svc.Preview(context.Background(), "user-1", "missing")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAcceptCreatesContractWithoutFile(t *testing.T) {
	repo := &mockReenrollmentRepo{detail: pendingDetail()}
	students := &mockStudentReader{student: &models.Student{ID: "stu-1", UserID: "user-1"}}
	audit := &mockAuditor{}
	svc := newReenrollmentService(repo, students, &mockGate{}, &mockTemplates{}, audit)

	contract, err := svc.Accept(context.Background(), "user-1", "enr-1")
	require.NoError(t, err)
	assert.Equal(t, "enr-1", repo.acceptedID)
	require.NotNil(t, contract.EnrollmentID)
	assert.Equal(t, "enr-1", *contract.EnrollmentID)
	assert.Equal(t, "stu-1", contract.StudentID)
	assert.Equal(t, 1, contract.Semester)
	assert.Equal(t, 2026, contract.Year)
	assert.Nil(t, contract.FilePath)
	assert.Nil(t, contract.FileName)
	require.NotNil(t, contract.AcceptedAt)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionReenrollAccept, audit.logs[0].Action)
}

func TestAcceptFailsWhenNotPending(t *testing.T) {
	detail := pendingDetail()
	detail.Status = models.EnrollmentStatusActive
	repo := &mockReenrollmentRepo{detail: detail, acceptErr: sql.ErrNoRows}
	students := &mockStudentReader{student: &models.Student{ID: "stu-1", UserID: "user-1"}}
	svc := newReenrollmentService(repo, students, &mockGate{}, &mockTemplates{}, &mockAuditor{})

	_, err := svc.Accept(context.Background(), "user-1", "enr-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "ACTIVE")
}

func TestAcceptRejectsMissingStudentProfile(t *testing.T) {
	repo := &mockReenrollmentRepo{detail: pendingDetail()}
	students := &mockStudentReader{err: sql.ErrNoRows}
	svc := newReenrollmentService(repo, students, &mockGate{}, &mockTemplates{}, &mockAuditor{})

	_, err := svc.Accept(context.Background(), "user-1", "enr-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
