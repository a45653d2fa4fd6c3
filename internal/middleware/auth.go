package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/session"

	"gallerylinks/internal/config"
	"gallerylinks/internal/models"
)

// Session keys for the signed-in identity.
const (
	SessionSub     = "admin_sub"
	SessionEmail   = "admin_email"
	SessionName    = "admin_name"
	SessionPicture = "admin_picture"
)

// MsgAccessDenied is shown when a signed-in identity is not the admin.
const MsgAccessDenied = "Access Denied: You are not the authorized admin."

// AuthMiddleware gates the admin dashboard on the configured OIDC subject.
type AuthMiddleware struct {
	cfg      *config.Config
	decorate func(fiber.Map) fiber.Map
}

// NewAuthMiddleware creates a new auth middleware instance. decorate adds
// site-wide template data to the login page.
func NewAuthMiddleware(cfg *config.Config, decorate func(fiber.Map) fiber.Map) *AuthMiddleware {
	if decorate == nil {
		decorate = func(m fiber.Map) fiber.Map { return m }
	}
	return &AuthMiddleware{cfg: cfg, decorate: decorate}
}

// AdminFromSession rebuilds the signed-in identity, nil when signed out.
func AdminFromSession(sess *session.Middleware) *models.Admin {
	if sess == nil {
		return nil
	}
	sub, _ := sess.Get(SessionSub).(string)
	if sub == "" {
		return nil
	}
	email, _ := sess.Get(SessionEmail).(string)
	name, _ := sess.Get(SessionName).(string)
	picture, _ := sess.Get(SessionPicture).(string)
	return &models.Admin{Sub: sub, Email: email, Name: name, Picture: picture}
}

// RequireAdmin lets only the configured admin through. Anyone else signed in
// has their session destroyed and sees the login page with an error.
func (m *AuthMiddleware) RequireAdmin(c fiber.Ctx) error {
	sess := session.FromContext(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session not available")
	}

	admin := AdminFromSession(sess)
	if admin == nil {
		return m.deny(c, fiber.StatusUnauthorized, "")
	}

	if !admin.IsAuthorized(m.cfg.AdminSub) {
		slog.Warn("rejected admin login", "sub", admin.Sub, "email", admin.Email)
		if err := sess.Destroy(); err != nil {
			slog.Error("failed to destroy session", "error", err)
		}
		return m.deny(c, fiber.StatusForbidden, MsgAccessDenied)
	}

	c.Locals("admin", admin)
	return c.Next()
}

func (m *AuthMiddleware) deny(c fiber.Ctx, status int, message string) error {
	if strings.HasPrefix(c.Path(), "/api/") || c.Get("Accept") == "text/event-stream" {
		if message == "" {
			message = "unauthorized"
		}
		return c.Status(status).JSON(fiber.Map{
			"status": "error",
			"error":  message,
		})
	}

	return c.Status(status).Render("login", m.decorate(fiber.Map{
		"Title":         "Sign in",
		"Error":         message,
		"OIDCAvailable": m.cfg.OIDCIssuer != "",
	}))
}
