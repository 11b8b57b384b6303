package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pawtograder/platform-sub009/internal/utils"
)

// Role names carried in the JWT role claim.
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleGrader     = "grader"
	RoleStudent    = "student"
)

// StaffRoles may manage classes, lab schedules and due date exceptions.
var StaffRoles = []string{RoleAdmin, RoleInstructor, RoleGrader}

// AuthOptions configures the WithAuth helper. An empty Roles list accepts any role.
type AuthOptions struct {
	Roles       []string
	RequireUser bool
}

type roleSet map[string]struct{}

func newRoleSet(roles []string) roleSet {
	set := make(roleSet, len(roles))
	for _, role := range roles {
		if normalized := roleName(role); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func (s roleSet) permits(c *fiber.Ctx) bool {
	_, ok := s[roleName(c.Locals("user_role"))]
	return ok
}

// WithAuth wraps a handler with authentication and role guards.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	allowed := newRoleSet(opts.Roles)
	requireUser := opts.RequireUser || len(allowed) > 0

	return func(c *fiber.Ctx) error {
		if requireUser && !hasSubject(c) {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if len(allowed) > 0 && !allowed.permits(c) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}

// RequireRole only checks the role claim; a request without any role is forbidden.
func RequireRole(roles ...string) fiber.Handler {
	allowed := newRoleSet(roles)
	return func(c *fiber.Ctx) error {
		if !allowed.permits(c) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// RequireSubject is the group form of WithAuth: the request must carry a
// subject and, when roles are given, one of them.
func RequireSubject(roles ...string) fiber.Handler {
	return WithAuth(func(c *fiber.Ctx) error { return c.Next() }, AuthOptions{Roles: roles, RequireUser: true})
}

func hasSubject(c *fiber.Ctx) bool {
	switch v := c.Locals("user_id").(type) {
	case uint:
		return v > 0
	case int:
		return v > 0
	case string:
		return v != ""
	default:
		return false
	}
}

func roleName(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", v)))
	}
}
