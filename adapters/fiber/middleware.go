package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/avennor/sluice"
)

// sessionLocalsKey memoizes the resolved session in the request's Locals,
// so every handler and middleware in one request hits the database at most
// once.
const sessionLocalsKey = "sluice.sessionData"

// sessionEntry wraps the memoized result; nil data is a valid, cached
// "not signed in" answer.
type sessionEntry struct {
	data *sluice.SessionData
}

// currentSession resolves the session cookie to its session and user.
// A missing, unknown or expired token returns (nil, nil).
func (a *Adapter) currentSession(c fiber.Ctx) (*sluice.SessionData, error) {
	if entry, ok := c.Locals(sessionLocalsKey).(*sessionEntry); ok {
		return entry.data, nil
	}

	token := c.Cookies(SessionCookieName)
	data, err := a.sluice.Auth.CurrentSession(c.Context(), token)
	if err != nil {
		return nil, err
	}

	c.Locals(sessionLocalsKey, &sessionEntry{data: data})
	return data, nil
}

// Protected is a middleware for application routes: it rejects requests
// without a valid session and stores user and session in the context for
// downstream handlers.
func (a *Adapter) Protected(c fiber.Ctx) error {
	data, err := a.currentSession(c)
	if err != nil {
		return failWith(c, err)
	}
	if data == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(messageResponse{
			Message: msgUnauthenticated,
		})
	}

	c.Locals("user", data.User)
	c.Locals("session", data.Session)

	return c.Next()
}
