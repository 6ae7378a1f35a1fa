// Package fiber adapts sluice to the Fiber web framework: it registers the
// auth routes, issues and clears the session and verification cookies, and
// memoizes the current session per request.
package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/avennor/sluice"
)

type Adapter struct {
	app *fiber.App

	sluice *sluice.Sluice
}

var _ sluice.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

func (a *Adapter) RegisterRoutes(s *sluice.Sluice) error {
	a.sluice = s

	api := a.app.Group(s.BasePath)

	// Public routes
	api.Post("/register", a.register)
	api.Post("/login", a.login)
	api.Get("/session", a.session)

	// Routes below need a signed-in user; the handlers resolve the session
	// themselves so they can answer with flow-specific messages.
	api.Post("/verify-email", a.verifyEmail)
	api.Post("/resend-verification", a.resendVerification)
	api.Post("/logout", a.logout)
	api.Delete("/account", a.deleteAccount)

	return nil
}
