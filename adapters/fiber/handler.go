package fiber

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/avennor/sluice"
	"github.com/avennor/sluice/core"
	"github.com/avennor/sluice/services"
)

// messageResponse is the uniform failure payload.
type messageResponse struct {
	Message string `json:"message"`
}

// redirectResponse tells the client where to navigate next.
type redirectResponse struct {
	RedirectTo string `json:"redirectTo"`
}

// User-facing copy. Rate limit messages stay generic on purpose: they never
// reveal the remaining budget or the backoff position.
const (
	msgInvalidBody        = "Invalid request body."
	msgRateLimited        = "Slow down! You're going too fast."
	msgThrottled          = "You're blocked from logging in due to repeated failed attempts. Please come back later."
	msgInvalidCredentials = "Invalid username or password."
	msgUsernameTaken      = "An account with that username already exists."
	msgEmailTaken         = "An account with that email already exists."
	msgUnauthenticated    = "You need to be logged in to do that."
	msgAlreadyVerified    = "Your email is already verified."
	msgCodeExpired        = "The verification code had expired."
	msgCodeExpiredResent  = "The verification code had expired. We sent another code to your email."
	msgCodeMismatch       = "Incorrect verification code!"
	msgCodeResent         = "We sent a new code to your email."
	msgLogoutFailed       = "Unable to logout! Try reloading the page."
	msgDeleteFailed       = "Unable to delete account! Try reloading the page."
	msgInternal           = "Something went wrong. Please try again."
)

func (a *Adapter) register(c fiber.Ctx) error {
	var input sluice.RegisterInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(messageResponse{Message: msgInvalidBody})
	}

	result, err := a.sluice.Auth.Register(c.Context(), input, c.IP())
	if err != nil {
		return failWith(c, err)
	}

	a.setSessionCookie(c, result.Token, result.Session.ExpiresAt)
	a.setVerificationCookie(c, result.Verification)

	return c.Status(fiber.StatusCreated).JSON(redirectResponse{RedirectTo: result.RedirectTo})
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input sluice.LoginInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(messageResponse{Message: msgInvalidBody})
	}

	result, err := a.sluice.Auth.Login(c.Context(), input, c.IP())
	if err != nil {
		return failWith(c, err)
	}

	a.setSessionCookie(c, result.Token, result.Session.ExpiresAt)

	return c.JSON(redirectResponse{RedirectTo: result.RedirectTo})
}

func (a *Adapter) session(c fiber.Ctx) error {
	data, err := a.currentSession(c)
	if err != nil {
		return failWith(c, err)
	}
	if data == nil {
		// Signed out is not an error; both fields are null.
		data = &sluice.SessionData{}
	}
	return c.JSON(data)
}

func (a *Adapter) verifyEmail(c fiber.Ctx) error {
	data, err := a.currentSession(c)
	if err != nil {
		return failWith(c, err)
	}

	var user *sluice.User
	if data != nil {
		user = data.User
	}

	var input sluice.VerifyInput
	if err := c.Bind().Body(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(messageResponse{Message: msgInvalidBody})
	}

	requestID := c.Cookies(VerificationCookieName)

	outcome, err := a.sluice.Auth.VerifyEmail(c.Context(), user, requestID, input)
	if err != nil {
		return failWith(c, err)
	}

	switch outcome.Status {
	case services.VerifyOK:
		a.clearCookie(c, VerificationCookieName)
		return c.JSON(redirectResponse{RedirectTo: outcome.RedirectTo})
	case services.VerifyExpiredResent:
		a.setVerificationCookie(c, outcome.NewRequest)
		return c.Status(fiber.StatusBadRequest).JSON(messageResponse{Message: msgCodeExpiredResent})
	case services.VerifyCodeMismatch:
		return c.Status(fiber.StatusBadRequest).JSON(messageResponse{Message: msgCodeMismatch})
	default: // services.VerifyNoRequest
		return c.Status(fiber.StatusBadRequest).JSON(messageResponse{Message: msgCodeExpired})
	}
}

func (a *Adapter) resendVerification(c fiber.Ctx) error {
	data, err := a.currentSession(c)
	if err != nil {
		return failWith(c, err)
	}

	var user *sluice.User
	if data != nil {
		user = data.User
	}

	request, err := a.sluice.Auth.ResendVerification(c.Context(), user)
	if err != nil {
		return failWith(c, err)
	}

	a.setVerificationCookie(c, request)

	return c.JSON(messageResponse{Message: msgCodeResent})
}

func (a *Adapter) logout(c fiber.Ctx) error {
	data, err := a.currentSession(c)
	if err != nil {
		return failWith(c, err)
	}
	if data == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(messageResponse{Message: msgLogoutFailed})
	}

	if err := a.sluice.Auth.Logout(c.Context(), data.Session); err != nil {
		return failWith(c, err)
	}

	a.clearCookie(c, SessionCookieName)

	return c.JSON(redirectResponse{RedirectTo: "/"})
}

func (a *Adapter) deleteAccount(c fiber.Ctx) error {
	data, err := a.currentSession(c)
	if err != nil {
		return failWith(c, err)
	}
	if data == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(messageResponse{Message: msgDeleteFailed})
	}

	if err := a.sluice.Auth.DeleteAccount(c.Context(), data.User); err != nil {
		return failWith(c, err)
	}

	a.clearCookie(c, SessionCookieName)
	a.clearCookie(c, VerificationCookieName)

	return c.JSON(redirectResponse{RedirectTo: "/"})
}

// failWith maps service errors to an HTTP status and user-facing message.
// Store-level failures stay opaque.
func failWith(c fiber.Ctx, err error) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return c.Status(fiber.StatusBadRequest).JSON(messageResponse{Message: ve.Message})
	}

	status, message := fiber.StatusInternalServerError, msgInternal

	switch {
	case errors.Is(err, core.ErrRateLimited):
		status, message = fiber.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, core.ErrLoginThrottled):
		status, message = fiber.StatusTooManyRequests, msgThrottled
	case errors.Is(err, core.ErrInvalidCredentials):
		status, message = fiber.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, core.ErrUnauthenticated):
		status, message = fiber.StatusUnauthorized, msgUnauthenticated
	case errors.Is(err, core.ErrUsernameTaken):
		status, message = fiber.StatusConflict, msgUsernameTaken
	case errors.Is(err, core.ErrEmailTaken):
		status, message = fiber.StatusConflict, msgEmailTaken
	case errors.Is(err, core.ErrAlreadyVerified):
		status, message = fiber.StatusBadRequest, msgAlreadyVerified
	}

	return c.Status(status).JSON(messageResponse{Message: message})
}
