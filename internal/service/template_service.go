package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

const activeTemplateCacheKey = "contract_template:active"

type templateRepository interface {
	FindFirstActive(ctx context.Context) (*models.ContractTemplate, error)
	FindByID(ctx context.Context, id string) (*models.ContractTemplate, error)
	List(ctx context.Context) ([]models.ContractTemplate, error)
	Create(ctx context.Context, template *models.ContractTemplate) error
	Update(ctx context.Context, template *models.ContractTemplate) error
}

type templateCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type cacheMetricsRecorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// ContractData carries the values substituted into a contract template.
type ContractData struct {
	StudentName     string
	StudentRegistry string
	StudentCPF      string
	CourseName      string
	Semester        int
	Year            int
	CurrentDate     time.Time
	InstitutionName string
}

// TemplateService manages contract templates and placeholder rendering.
type TemplateService struct {
	repo     templateRepository
	cache    templateCache
	metrics  cacheMetricsRecorder
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewTemplateService constructs TemplateService. The cache and metrics
// recorder are optional.
func NewTemplateService(repo templateRepository, cache templateCache, metrics cacheMetricsRecorder, cacheTTL time.Duration, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &TemplateService{repo: repo, cache: cache, metrics: metrics, cacheTTL: cacheTTL, logger: logger}
}

// ActiveTemplate returns the first active template, serving from cache when
// possible. Templates are read-only at runtime so a short TTL is safe.
func (s *TemplateService) ActiveTemplate(ctx context.Context) (*models.ContractTemplate, error) {
	if s.cache != nil {
		start := time.Now()
		var cached models.ContractTemplate
		err := s.cache.Get(ctx, activeTemplateCacheKey, &cached)
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		}
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("template cache lookup failed", zap.Error(err))
		}
	}

	template, err := s.repo.FindFirstActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict, "no active contract template available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract template")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, activeTemplateCacheKey, template, s.cacheTTL); err != nil {
			s.logger.Warn("template cache store failed", zap.Error(err))
		}
	}
	return template, nil
}

// List returns all templates.
func (s *TemplateService) List(ctx context.Context) ([]models.ContractTemplate, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contract templates")
	}
	return templates, nil
}

// Create stores a new template and invalidates the active-template cache.
func (s *TemplateService) Create(ctx context.Context, template *models.ContractTemplate) error {
	if strings.TrimSpace(template.Name) == "" || strings.TrimSpace(template.Content) == "" {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid template payload"), "name and content are required")
	}
	if err := s.repo.Create(ctx, template); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contract template")
	}
	s.invalidate(ctx)
	return nil
}

// Update modifies a template and invalidates the active-template cache.
func (s *TemplateService) Update(ctx context.Context, template *models.ContractTemplate) error {
	if _, err := s.repo.FindByID(ctx, template.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "contract template not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract template")
	}
	if err := s.repo.Update(ctx, template); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contract template")
	}
	s.invalidate(ctx)
	return nil
}

func (s *TemplateService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeTemplateCacheKey); err != nil {
		s.logger.Warn("template cache invalidation failed", zap.Error(err))
	}
}

// Render substitutes every recognized {{token}} in the template content with
// its data value. Unrecognized tokens are left untouched. The substitution
// is a literal find-and-replace, not a template-language evaluation, and is
// idempotent: rendering already-rendered output changes nothing as long as
// the data values contain no tokens themselves.
func Render(content string, data ContractData) string {
	replacer := strings.NewReplacer(
		"{{studentName}}", data.StudentName,
		"{{studentID}}", data.StudentRegistry,
		"{{cpf}}", data.StudentCPF,
		"{{courseName}}", data.CourseName,
		"{{semester}}", strconv.Itoa(data.Semester),
		"{{year}}", strconv.Itoa(data.Year),
		"{{currentDate}}", data.CurrentDate.Format("02/01/2006"),
		"{{institutionName}}", data.InstitutionName,
	)
	return replacer.Replace(content)
}
