package fiber

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/avennor/sluice"
)

const (
	// SessionCookieName carries the raw bearer token.
	SessionCookieName = "session"

	// VerificationCookieName carries the pending verification request id,
	// so the verify endpoint can find the request without trusting a
	// user-supplied id.
	VerificationCookieName = "email_verification"
)

// authCookie builds a cookie with the shared attribute profile: HTTP-only,
// SameSite=Lax, root path, Secure when configured.
func (a *Adapter) authCookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		Path:     "/",
		HTTPOnly: true,
		Secure:   a.sluice.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func (a *Adapter) setSessionCookie(c fiber.Ctx, token string, expires time.Time) {
	c.Cookie(a.authCookie(SessionCookieName, token, expires))
}

func (a *Adapter) setVerificationCookie(c fiber.Ctx, request *sluice.VerificationRequest) {
	c.Cookie(a.authCookie(VerificationCookieName, request.ID, request.ExpiresAt))
}

// clearCookie replaces the cookie with an empty, immediately expiring one.
func (a *Adapter) clearCookie(c fiber.Ctx, name string) {
	cookie := a.authCookie(name, "", time.Unix(0, 0))
	cookie.MaxAge = -1
	c.Cookie(cookie)
}
