package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func roleApp(role interface{}) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != nil {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(RequireRole(StaffRoles...))
	app.Get("/classes", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRole(t *testing.T) {
	cases := []struct {
		name   string
		role   interface{}
		status int
	}{
		{name: "instructor any case", role: " Instructor ", status: fiber.StatusOK},
		{name: "grader", role: "grader", status: fiber.StatusOK},
		{name: "student", role: "student", status: fiber.StatusForbidden},
		{name: "missing", role: nil, status: fiber.StatusForbidden},
		{name: "non string", role: 42, status: fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := roleApp(tc.role).Test(httptest.NewRequest(http.MethodGet, "/classes", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestRoleName(t *testing.T) {
	require.Equal(t, "", roleName(nil))
	require.Equal(t, "admin", roleName("ADMIN"))
	require.Equal(t, "7", roleName(7))
}
