package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/middleware"
	"github.com/secretaria-online/secretaria-api/internal/models"
	"github.com/secretaria-online/secretaria-api/internal/service"
)

type fakeReenrollmentRepo struct {
	detail    *models.EnrollmentDetail
	detailErr error
	markedIDs []string
}

func (f *fakeReenrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeReenrollmentRepo) MarkActiveAsPending(ctx context.Context) ([]string, error) {
	return f.markedIDs, nil
}

func (f *fakeReenrollmentRepo) AcceptReenrollment(ctx context.Context, enrollmentID string, contract *models.Contract) error {
	return nil
}

type fakeStudentReader struct {
	student *models.Student
}

func (f *fakeStudentReader) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	return f.student, nil
}

type fakeGate struct {
	ok bool
}

func (f *fakeGate) VerifyAdminPassword(ctx context.Context, userID, password string) (bool, error) {
	return f.ok, nil
}

type fakeTemplates struct {
	template *models.ContractTemplate
}

func (f *fakeTemplates) ActiveTemplate(ctx context.Context) (*models.ContractTemplate, error) {
	return f.template, nil
}

type fakeAuditor struct{}

func (f *fakeAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return nil
}

func buildReenrollmentRouter(repo *fakeReenrollmentRepo, gate *fakeGate, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)

	students := &fakeStudentReader{student: &models.Student{ID: "stu-1", UserID: "user-1"}}
	templates := &fakeTemplates{template: &models.ContractTemplate{ID: "tpl-1", Content: "<p>{{studentName}}</p>", Active: true}}
	svc := service.NewReenrollmentService(repo, students, gate, templates, &fakeAuditor{}, "Secretaria Online", validator.New(), zap.NewNop())
	h := NewReenrollmentHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.ContextUserKey, claims)
		}
		c.Next()
	})
	router.POST("/reenrollments/process-all", h.ProcessAll)
	router.GET("/reenrollments/contract-preview/:enrollmentId", h.ContractPreview)
	router.POST("/reenrollments/accept/:enrollmentId", h.Accept)
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@escola.edu.br"}
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent, Email: "maria@escola.edu.br"}
}

func pendingEnrollmentDetail() *models.EnrollmentDetail {
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

func TestProcessAllEndpoint(t *testing.T) {
	repo := &fakeReenrollmentRepo{markedIDs: []string{"enr-1", "enr-2"}}
	router := buildReenrollmentRouter(repo, &fakeGate{ok: true}, adminClaims())

	body := bytes.NewBufferString(`{"semester":1,"year":2026,"adminPassword":"s3cret-admin"}`)
	req, _ := http.NewRequest(http.MethodPost, "/reenrollments/process-all", body)
	req.Header.Set("Content-Type", "application/json")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"totalStudents":2`)
	require.Contains(t, resp.Body.String(), `"affectedEnrollmentIds":["enr-1","enr-2"]`)
}

func TestProcessAllEndpointRejectsBadPassword(t *testing.T) {
	repo := &fakeReenrollmentRepo{markedIDs: []string{"enr-1"}}
	router := buildReenrollmentRouter(repo, &fakeGate{ok: false}, adminClaims())

	body := bytes.NewBufferString(`{"semester":1,"year":2026,"adminPassword":"wrong"}`)
	req, _ := http.NewRequest(http.MethodPost, "/reenrollments/process-all", body)
	req.Header.Set("Content-Type", "application/json")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Contains(t, resp.Body.String(), `"success":false`)
}

func TestProcessAllEndpointRequiresAuthentication(t *testing.T) {
	repo := &fakeReenrollmentRepo{}
	router := buildReenrollmentRouter(repo, &fakeGate{ok: true}, nil)

	body := bytes.NewBufferString(`{"semester":1,"year":2026,"adminPassword":"s3cret-admin"}`)
	req, _ := http.NewRequest(http.MethodPost, "/reenrollments/process-all", body)
	req.Header.Set("Content-Type", "application/json")

	resp := performRequest(router, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestContractPreviewEndpoint(t *testing.T) {
	repo := &fakeReenrollmentRepo{detail: pendingEnrollmentDetail()}
	router := buildReenrollmentRouter(repo, &fakeGate{ok: true}, studentClaims())

	req, _ := http.NewRequest(http.MethodGet, "/reenrollments/contract-preview/enr-1", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "Maria Silva")
	require.Contains(t, resp.Body.String(), `"contractHTML"`)
}

func TestContractPreviewEndpointRejectsActiveEnrollment(t *testing.T) {
	detail := pendingEnrollmentDetail()
	detail.Status = models.EnrollmentStatusActive
	repo := &fakeReenrollmentRepo{detail: detail}
	router := buildReenrollmentRouter(repo, &fakeGate{ok: true}, studentClaims())

	req, _ := http.NewRequest(http.MethodGet, "/reenrollments/contract-preview/enr-1", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Contains(t, resp.Body.String(), "ACTIVE")
}

func TestAcceptEndpoint(t *testing.T) {
	repo := &fakeReenrollmentRepo{detail: pendingEnrollmentDetail()}
	router := buildReenrollmentRouter(repo, &fakeGate{ok: true}, studentClaims())

	req, _ := http.NewRequest(http.MethodPost, "/reenrollments/accept/enr-1", nil)
	resp := performRequest(router, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"accepted_at"`)
}
