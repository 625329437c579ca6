package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
	"github.com/secretaria-online/secretaria-api/pkg/response"
)

// Action names an operation on a resource for the authorization policy.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionReview Action = "review"
	ActionManage Action = "manage"
)

// policy maps resource and action to the roles allowed to perform it. The
// table is data, not route wiring: handlers stay unaware of who may call
// them, and ownership checks on student-scoped resources live in the
// service layer.
var policy = map[string]map[Action][]models.UserRole{
	"users": {
		ActionRead:   {models.RoleAdmin},
		ActionManage: {models.RoleAdmin},
	},
	"students": {
		ActionRead:   {models.RoleAdmin, models.RoleTeacher},
		ActionManage: {models.RoleAdmin},
	},
	"courses": {
		ActionRead:   {models.RoleAdmin, models.RoleTeacher, models.RoleStudent},
		ActionManage: {models.RoleAdmin},
	},
	"classes": {
		ActionRead:   {models.RoleAdmin, models.RoleTeacher, models.RoleStudent},
		ActionManage: {models.RoleAdmin},
	},
	"enrollments": {
		ActionRead:   {models.RoleAdmin, models.RoleTeacher},
		ActionManage: {models.RoleAdmin},
	},
	"reenrollments": {
		ActionRead:   {models.RoleStudent},
		ActionWrite:  {models.RoleStudent},
		ActionManage: {models.RoleAdmin},
	},
	"documents": {
		ActionRead:   {models.RoleAdmin, models.RoleStudent},
		ActionWrite:  {models.RoleStudent},
		ActionReview: {models.RoleAdmin},
	},
	"contracts": {
		ActionRead:   {models.RoleAdmin, models.RoleStudent},
		ActionManage: {models.RoleAdmin},
	},
	"templates": {
		ActionRead:   {models.RoleAdmin},
		ActionManage: {models.RoleAdmin},
	},
	"evaluations": {
		ActionRead:   {models.RoleAdmin, models.RoleTeacher},
		ActionWrite:  {models.RoleAdmin, models.RoleTeacher},
		ActionManage: {models.RoleAdmin},
	},
	"metrics": {
		ActionRead: {models.RoleAdmin},
	},
}

// Allowed reports whether the policy permits role to perform action on
// resource. Unknown resources and actions deny.
func Allowed(role models.UserRole, resource string, action Action) bool {
	actions, ok := policy[resource]
	if !ok {
		return false
	}
	for _, allowed := range actions[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Authorize enforces the policy for a resource and action. It expects JWT
// claims placed in the context by the JWT middleware.
func Authorize(resource string, action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if !Allowed(claims.Role, resource, action) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
