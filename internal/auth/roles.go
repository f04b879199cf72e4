package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-requests/internal/domain"
	apperrors "github.com/spec-kit/municipal-requests/pkg/util"
)

// RequireRoles ensures the authenticated user holds one of the allowed
// roles. With no roles given any authenticated user passes.
func RequireRoles(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[user.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// AdminRoles lists the roles allowed on the admin surface.
var AdminRoles = []domain.UserRole{
	domain.RoleDistrictAdmin,
	domain.RoleMunicipalAdmin,
	domain.RoleStaff,
}
