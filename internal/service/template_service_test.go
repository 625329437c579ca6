package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

type mockTemplateRepo struct {
	active      *models.ContractTemplate
	activeErr   error
	activeCalls int
	created     *models.ContractTemplate
}

func (m *mockTemplateRepo) FindFirstActive(ctx context.Context) (*models.ContractTemplate, error) {
	m.activeCalls++
	if m.activeErr != nil {
		return nil, m.activeErr
	}
	return m.active, nil
}

func (m *mockTemplateRepo) FindByID(ctx context.Context, id string) (*models.ContractTemplate, error) {
	if m.active != nil && m.active.ID == id {
		return m.active, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTemplateRepo) List(ctx context.Context) ([]models.ContractTemplate, error) {
	if m.active == nil {
		return nil, nil
	}
	return []models.ContractTemplate{*m.active}, nil
}

func (m *mockTemplateRepo) Create(ctx context.Context, template *models.ContractTemplate) error {
	m.created = template
	return nil
}

func (m *mockTemplateRepo) Update(ctx context.Context, template *models.ContractTemplate) error {
	m.active = template
	return nil
}

type memoryCache struct {
	entries map[string][]byte
	deletes int
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.deletes++
	delete(c.entries, key)
	return nil
}

func sampleContractData() ContractData {
	return ContractData{
		StudentName:     "Joao Souza",
		StudentRegistry: "2026000042",
		StudentCPF:      "98765432100",
		CourseName:      "Direito",
		Semester:        2,
		Year:            2026,
		CurrentDate:     time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
		InstitutionName: "Secretaria Online",
	}
}

func TestRenderSubstitutesTokens(t *testing.T) {
	content := "<p>{{studentName}} ({{studentID}}, CPF {{cpf}}) - {{courseName}} {{semester}}/{{year}} em {{currentDate}} - {{institutionName}}</p>"

	html := Render(content, sampleContractData())
	assert.Equal(t, "<p>Joao Souza (2026000042, CPF 98765432100) - Direito 2/2026 em 01/08/2026 - Secretaria Online</p>", html)
}

func TestRenderLeavesUnknownTokensUntouched(t *testing.T) {
	content := "<p>{{studentName}} {{unknownToken}} {{alsoUnknown}}</p>"

	html := Render(content, sampleContractData())
	assert.Equal(t, "<p>Joao Souza {{unknownToken}} {{alsoUnknown}}</p>", html)
}

func TestRenderIsIdempotent(t *testing.T) {
	content := "<p>{{studentName}} - {{year}}</p>"
	data := sampleContractData()

	once := Render(content, data)
	twice := Render(once, data)
	assert.Equal(t, once, twice)
}

func TestRenderNeverEvaluatesContent(t *testing.T) {
	data := sampleContractData()
	data.StudentName = "{{cpf}}"

	// A substituted value that looks like a token must not be re-expanded.
	html := Render("{{studentName}}", data)
	assert.Equal(t, "{{cpf}}", html)
}

func TestActiveTemplateCachesResult(t *testing.T) {
	repo := &mockTemplateRepo{active: &models.ContractTemplate{ID: "tpl-1", Name: "Default", Content: "x", Active: true}}
	cache := &memoryCache{}
	svc := NewTemplateService(repo, cache, nil, time.Minute, zap.NewNop())

	first, err := svc.ActiveTemplate(context.Background())
	require.NoError(t, err)
	second, err := svc.ActiveTemplate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, repo.activeCalls, "second lookup must come from cache")
}

func TestActiveTemplateMissingIsStateConflict(t *testing.T) {
	repo := &mockTemplateRepo{activeErr: sql.ErrNoRows}
	svc := NewTemplateService(repo, nil, nil, time.Minute, zap.NewNop())

	_, err := svc.ActiveTemplate(context.Background())
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrStateConflict.Code, appErr.Code)
}

func TestTemplateWritesInvalidateCache(t *testing.T) {
	repo := &mockTemplateRepo{active: &models.ContractTemplate{ID: "tpl-1", Name: "Default", Content: "x", Active: true}}
	cache := &memoryCache{}
	svc := NewTemplateService(repo, cache, nil, time.Minute, zap.NewNop())

	_, err := svc.ActiveTemplate(context.Background())
	require.NoError(t, err)

	err = svc.Create(context.Background(), &models.ContractTemplate{Name: "New", Content: "y", Active: true})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.deletes)
	assert.Empty(t, cache.entries)
}
