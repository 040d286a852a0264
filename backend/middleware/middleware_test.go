package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apollo/backend/config"
	"apollo/backend/models"
	"apollo/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = &config.Config{JWTSecret: "middleware-secret", JWTTTL: time.Hour}

func token(t *testing.T, id uint, role string) string {
	t.Helper()
	tok, err := utils.GenerateJWTToken(id, role, testCfg)
	require.NoError(t, err)
	return tok
}

func whoami(c *fiber.Ctx) error {
	p, ok := CurrentPrincipal(c)
	if !ok {
		return c.SendString("anonymous")
	}
	return c.SendString(p.Role)
}

func get(t *testing.T, app *fiber.App, path, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.String()
}

func TestAuthMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/strict", AuthMiddleware(testCfg), whoami)
	app.Get("/optional", OptionalAuth(testCfg), whoami)
	app.Get("/admin", AuthMiddleware(testCfg), RequireRoles(models.RoleAdmin), whoami)
	app.Get("/unguarded", RequireRoles(models.RoleAdmin), whoami)

	student := token(t, 1, models.RoleStudent)
	admin := token(t, 2, models.RoleAdmin)
	foreign, err := utils.GenerateJWTToken(3, models.RoleAdmin, &config.Config{JWTSecret: "other"})
	require.NoError(t, err)

	tests := []struct {
		path       string
		auth       string
		wantStatus int
		wantBody   string
	}{
		{"/strict", "", fiber.StatusUnauthorized, ""},
		{"/strict", "Bearer " + student, fiber.StatusOK, models.RoleStudent},
		{"/strict", student, fiber.StatusOK, models.RoleStudent},
		{"/strict", "Bearer " + foreign, fiber.StatusUnauthorized, ""},
		{"/optional", "", fiber.StatusOK, "anonymous"},
		{"/optional", "Bearer garbage", fiber.StatusOK, "anonymous"},
		{"/optional", "Bearer " + admin, fiber.StatusOK, models.RoleAdmin},
		{"/admin", "Bearer " + student, fiber.StatusForbidden, ""},
		{"/admin", "Bearer " + admin, fiber.StatusOK, models.RoleAdmin},
		{"/unguarded", "", fiber.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path+" "+tt.auth, func(t *testing.T) {
			status, body := get(t, app, tt.path, tt.auth)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, body)
			}
		})
	}
}

func TestAuthRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Get("/login", AuthRateLimiter(2, time.Minute), whoami)

	for i := 0; i < 2; i++ {
		status, _ := get(t, app, "/login", "")
		assert.Equal(t, fiber.StatusOK, status)
	}
	status, body := get(t, app, "/login", "")
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Contains(t, body, "Too many authentication attempts")
}

func TestLoggingAndMetrics(t *testing.T) {
	var out bytes.Buffer
	m := utils.NewMetrics()
	app := fiber.New()
	app.Use(LoggingMiddleware(log.New(&out, "", 0), false))
	app.Use(MetricsMiddleware(m))
	app.Get("/courses/:id", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	get(t, app, "/courses/1", "")
	get(t, app, "/courses/2", "")
	status, _ := get(t, app, "/boom", "")
	assert.Equal(t, fiber.StatusTeapot, status)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "GET /courses/1 200")
	assert.Contains(t, lines[2], "GET /boom 418")
	assert.NotContains(t, out.String(), "\033[")

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "apollo_http_requests_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			counts[labels["route"]+" "+labels["status"]] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, counts["/courses/:id 200"], "requests are grouped by route pattern")
	assert.Equal(t, 1.0, counts["/boom 418"])
}
