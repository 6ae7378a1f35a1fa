package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avennor/sluice/core"
	"github.com/avennor/sluice/pkg/crypto"
)

// AuthService composes the session, verification and rate-limiting
// primitives into the register/login/verify/logout flows. It holds only
// immutable dependencies and is safe to share across requests.
type AuthService struct {
	db            core.AuthStorage
	passwords     crypto.PasswordHandler
	sessions      *SessionManager
	verifications *VerificationManager
	mailer        core.Mailer

	// Process-wide limiter singletons; all mutable limiter state lives in
	// the shared store, never in this struct.
	authBucket     core.Bucket
	loginThrottler core.Throttle
	resendBucket   core.Bucket
}

// AuthServiceDeps bundles the collaborators of an AuthService.
type AuthServiceDeps struct {
	DB            core.AuthStorage
	Passwords     crypto.PasswordHandler
	Sessions      *SessionManager
	Verifications *VerificationManager
	Mailer        core.Mailer

	AuthBucket     core.Bucket
	LoginThrottler core.Throttle
	ResendBucket   core.Bucket
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	return &AuthService{
		db:             deps.DB,
		passwords:      deps.Passwords,
		sessions:       deps.Sessions,
		verifications:  deps.Verifications,
		mailer:         deps.Mailer,
		authBucket:     deps.AuthBucket,
		loginThrottler: deps.LoginThrottler,
		resendBucket:   deps.ResendBucket,
	}
}

// AuthResult is returned by Register and Login. Token is the raw bearer
// token (not the hash) for the caller to deliver in the session cookie;
// Verification, when set, should seed the email_verification marker cookie.
type AuthResult struct {
	User         *core.User                `json:"user"`
	Session      *core.Session             `json:"session"`
	Token        string                    `json:"-"`
	Verification *core.VerificationRequest `json:"-"`
	RedirectTo   string                    `json:"redirectTo"`
}

// A syntactically valid argon2id hash of no password at all. Login verifies
// against it when no user matched the identifier, so the response takes the
// same time either way and cannot be used to probe for registered accounts.
const decoyPasswordHash = "$argon2id$v=19$m=65536,t=3,p=2$" +
	"AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a user, sends them a verification code, and signs them
// in. The shared auth bucket gates the call by client IP.
func (s *AuthService) Register(ctx context.Context, input RegisterInput, ip string) (*AuthResult, error) {
	allowed, err := s.authBucket.Consume(ctx, ip, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		return nil, core.ErrRateLimited
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	// Friendly conflict check first; the unique constraints in storage are
	// the authoritative backstop under concurrent registration.
	if existing, err := s.db.GetUserByLogin(ctx, input.Username); err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	} else if existing != nil && existing.Username == input.Username {
		return nil, core.ErrUsernameTaken
	}
	if existing, err := s.db.GetUserByLogin(ctx, input.Email); err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	} else if existing != nil {
		return nil, core.ErrEmailTaken
	}

	passwordHash, err := s.passwords.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &core.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	request, err := s.verifications.Create(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendVerificationCode(ctx, request.Email, request.Code); err != nil {
		return nil, fmt.Errorf("failed to send verification code: %w", err)
	}

	token, err := crypto.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	session, err := s.sessions.Create(ctx, token, user.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		Session:      session,
		Token:        token,
		Verification: request,
		RedirectTo:   "/verify",
	}, nil
}

// Login authenticates an identifier/password pair. The shared auth bucket
// gates the call by client IP; failed attempts additionally walk the login
// throttler's backoff ladder, and a successful login resets it.
func (s *AuthService) Login(ctx context.Context, input LoginInput, ip string) (*AuthResult, error) {
	allowed, err := s.authBucket.Consume(ctx, ip, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		return nil, core.ErrRateLimited
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	user, err := s.db.GetUserByLogin(ctx, input.Identifier)
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// The password check runs whether or not a user matched, so the branch
	// shape never reveals whether an identifier is registered.
	storedHash := decoyPasswordHash
	if user != nil {
		storedHash = user.PasswordHash
	}
	validPassword, err := s.passwords.Verify(input.Password, storedHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}

	if user == nil || !validPassword {
		allowed, err := s.loginThrottler.Consume(ctx, ip)
		if err != nil {
			return nil, fmt.Errorf("failed to check throttle: %w", err)
		}
		if !allowed {
			return nil, core.ErrLoginThrottled
		}
		return nil, core.ErrInvalidCredentials
	}

	if err := s.loginThrottler.Reset(ctx, ip); err != nil {
		return nil, fmt.Errorf("failed to reset throttle: %w", err)
	}

	token, err := crypto.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	session, err := s.sessions.Create(ctx, token, user.ID)
	if err != nil {
		return nil, err
	}

	// Opportunistic housekeeping; validation self-heals regardless.
	_, _ = s.sessions.InvalidateExpired(ctx)

	return &AuthResult{
		User:       user,
		Session:    session,
		Token:      token,
		RedirectTo: "/",
	}, nil
}

// VerifyStatus classifies the outcome of a verification attempt.
type VerifyStatus int

const (
	// VerifyOK means the code matched and the user is now verified.
	VerifyOK VerifyStatus = iota
	// VerifyNoRequest means no live request matched; to the caller this is
	// indistinguishable from an expired code.
	VerifyNoRequest
	// VerifyExpiredResent means the request had expired; a fresh code was
	// issued and sent, carried in NewRequest.
	VerifyExpiredResent
	// VerifyCodeMismatch means the code was wrong. The pending request is
	// left alone so the user can retry within the validity window.
	VerifyCodeMismatch
)

// VerifyEmailOutcome reports what a verification attempt did. NewRequest is
// set only for VerifyExpiredResent, so the caller can refresh the marker
// cookie.
type VerifyEmailOutcome struct {
	Status     VerifyStatus
	NewRequest *core.VerificationRequest
	RedirectTo string
}

// VerifyEmail checks a submitted code against the user's pending request,
// identified by the marker-cookie request id.
func (s *AuthService) VerifyEmail(ctx context.Context, user *core.User, requestID string, input VerifyInput) (*VerifyEmailOutcome, error) {
	if user == nil {
		return nil, core.ErrUnauthenticated
	}
	if user.Verified() {
		return nil, core.ErrAlreadyVerified
	}

	allowed, err := s.authBucket.Consume(ctx, user.ID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		return nil, core.ErrRateLimited
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}
	code := input.NormalizedCode()

	request, err := s.verifications.Get(ctx, user.ID, requestID)
	if err != nil {
		if errors.Is(err, core.ErrVerificationNotFound) {
			return &VerifyEmailOutcome{Status: VerifyNoRequest}, nil
		}
		return nil, fmt.Errorf("failed to load verification request: %w", err)
	}

	// Issue and send a new code if the pending one has expired.
	if !time.Now().Before(request.ExpiresAt) {
		fresh, err := s.verifications.Create(ctx, request.UserID, request.Email)
		if err != nil {
			return nil, err
		}
		if err := s.mailer.SendVerificationCode(ctx, fresh.Email, fresh.Code); err != nil {
			return nil, fmt.Errorf("failed to send verification code: %w", err)
		}
		return &VerifyEmailOutcome{Status: VerifyExpiredResent, NewRequest: fresh}, nil
	}

	if request.Code != code {
		return &VerifyEmailOutcome{Status: VerifyCodeMismatch}, nil
	}

	if err := s.verifications.DeleteForUser(ctx, request.UserID); err != nil {
		return nil, err
	}
	if err := s.db.SetUserVerified(ctx, request.UserID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to mark user verified: %w", err)
	}

	return &VerifyEmailOutcome{Status: VerifyOK, RedirectTo: "/"}, nil
}

// ResendVerification issues a fresh code for an unverified user. Resends
// are strictly limited: one token refilling every 30 seconds.
func (s *AuthService) ResendVerification(ctx context.Context, user *core.User) (*core.VerificationRequest, error) {
	if user == nil {
		return nil, core.ErrUnauthenticated
	}
	if user.Verified() {
		return nil, core.ErrAlreadyVerified
	}

	allowed, err := s.resendBucket.Consume(ctx, user.ID, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to check rate limit: %w", err)
	}
	if !allowed {
		return nil, core.ErrRateLimited
	}

	request, err := s.verifications.Create(ctx, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.mailer.SendVerificationCode(ctx, request.Email, request.Code); err != nil {
		return nil, fmt.Errorf("failed to send verification code: %w", err)
	}

	return request, nil
}

// Logout invalidates the session and sweeps expired rows while it's here.
func (s *AuthService) Logout(ctx context.Context, session *core.Session) error {
	if session == nil {
		return core.ErrUnauthenticated
	}
	if err := s.sessions.Invalidate(ctx, session.ID); err != nil {
		return err
	}
	_, _ = s.sessions.InvalidateExpired(ctx)
	return nil
}

// DeleteAccount removes the user; sessions and verification requests
// cascade away with the row.
func (s *AuthService) DeleteAccount(ctx context.Context, user *core.User) error {
	if user == nil {
		return core.ErrUnauthenticated
	}
	if err := s.db.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// CurrentSession resolves a bearer token to its session and user. A token
// that is missing, unknown or expired yields (nil, nil) rather than an
// error; only infrastructure failures are reported. Callers serving a
// single request should memoize the result instead of calling repeatedly.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*core.SessionData, error) {
	if token == "" {
		return nil, nil
	}

	session, user, err := s.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &core.SessionData{User: user, Session: session}, nil
}
