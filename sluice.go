// Package sluice is a session authentication core with distributed rate
// limiting. Sessions live hashed-at-rest in a relational store; the token
// bucket and login throttler run atomically against Redis, so limits hold
// under concurrent requests from many server processes.
package sluice

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avennor/sluice/core"
	"github.com/avennor/sluice/pkg/crypto"
	"github.com/avennor/sluice/ratelimit"
	"github.com/avennor/sluice/services"
)

// interfaces
type (
	AuthStorage = core.AuthStorage
	Mailer      = core.Mailer
	Bucket      = core.Bucket
	Throttle    = core.Throttle

	PasswordHandler = crypto.PasswordHandler
)

// structs
type (
	SessionConfig = services.SessionConfig

	User                = core.User
	Session             = core.Session
	VerificationRequest = core.VerificationRequest
	SessionData         = core.SessionData

	RegisterInput = services.RegisterInput
	LoginInput    = services.LoginInput
	VerifyInput   = services.VerifyInput

	AuthResult         = services.AuthResult
	VerifyEmailOutcome = services.VerifyEmailOutcome
)

// Constructors & helpers (convenience re-exports)
var (
	NewArgon2            = crypto.NewArgon2
	DefaultSessionConfig = services.DefaultSessionConfig
	NewTokenBucket       = ratelimit.NewTokenBucket
	NewThrottler         = ratelimit.NewThrottler
)

var (
	ErrRateLimited    = core.ErrRateLimited
	ErrLoginThrottled = core.ErrLoginThrottled
)

var (
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrUnauthenticated    = core.ErrUnauthenticated
	ErrSessionNotFound    = core.ErrSessionNotFound
	ErrUserNotFound       = core.ErrUserNotFound
)

var (
	ErrUsernameTaken = core.ErrUsernameTaken
	ErrEmailTaken    = core.ErrEmailTaken
)

var (
	ErrVerificationNotFound = core.ErrVerificationNotFound
	ErrAlreadyVerified      = core.ErrAlreadyVerified
)

var (
	ErrDBAdapterRequired = core.ErrDBAdapterRequired
	ErrRedisRequired     = core.ErrRedisRequired
	ErrMailerRequired    = core.ErrMailerRequired
)

const (
	// VerifyOK and friends classify VerifyEmail outcomes.
	VerifyOK            = services.VerifyOK
	VerifyNoRequest     = services.VerifyNoRequest
	VerifyExpiredResent = services.VerifyExpiredResent
	VerifyCodeMismatch  = services.VerifyCodeMismatch
)

const defaultBasePath = "/api/auth"

// Config wires a Sluice instance. Database, Redis and Mailer are required;
// everything else has defaults.
type Config struct {
	Database core.AuthStorage
	Redis    redis.UniversalClient
	Mailer   core.Mailer

	// Optional config
	HTTP           HTTPAdapter
	SessionConfig  *SessionConfig
	PasswordHasher crypto.PasswordHandler
	BasePath       string

	// SecureCookies marks issued cookies Secure; enable in production.
	SecureCookies bool
}

// HTTPAdapter registers the auth routes on a web framework.
type HTTPAdapter interface {
	RegisterRoutes(s *Sluice) error
}

// Sluice bundles the configured services. One instance serves the whole
// process; every named rate limiter exists exactly once and shares its
// state through Redis.
type Sluice struct {
	Auth          *services.AuthService
	Sessions      *services.SessionManager
	Verifications *services.VerificationManager

	BasePath      string
	SecureCookies bool
}

func New(config Config) (*Sluice, error) {
	if config.Database == nil {
		return nil, ErrDBAdapterRequired
	}
	if config.Redis == nil {
		return nil, ErrRedisRequired
	}
	if config.Mailer == nil {
		return nil, ErrMailerRequired
	}

	// Set Defaults

	sessionConfig := config.SessionConfig
	if sessionConfig == nil {
		defaults := DefaultSessionConfig()
		sessionConfig = &defaults
	}

	passwordHasher := config.PasswordHasher
	if passwordHasher == nil {
		passwordHasher = crypto.NewArgon2()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	sessionManager := services.NewSessionManager(*sessionConfig, config.Database)
	verificationManager := services.NewVerificationManager(config.Database)

	// All authentication actions share one token bucket, keyed by client
	// IP. The login throttler backs off repeated failures per IP, and
	// resending verification codes is limited to one per 30 seconds.
	authBucket := ratelimit.NewTokenBucket(config.Redis, "auth", 10, time.Second)
	loginThrottler := ratelimit.NewThrottler(config.Redis, "login")
	resendBucket := ratelimit.NewTokenBucket(config.Redis, "resend_verification_email", 1, 30*time.Second)

	auth := services.NewAuthService(services.AuthServiceDeps{
		DB:             config.Database,
		Passwords:      passwordHasher,
		Sessions:       sessionManager,
		Verifications:  verificationManager,
		Mailer:         config.Mailer,
		AuthBucket:     authBucket,
		LoginThrottler: loginThrottler,
		ResendBucket:   resendBucket,
	})

	s := &Sluice{
		Auth:          auth,
		Sessions:      sessionManager,
		Verifications: verificationManager,
		BasePath:      basePath,
		SecureCookies: config.SecureCookies,
	}

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}
