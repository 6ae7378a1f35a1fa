package services

import (
	"context"
	"sync"
	"time"

	"github.com/avennor/sluice/core"
)

// FakeAuthStorage is a test-only fake implementing core.AuthStorage. It
// stores everything in maps and exposes error fields for behavior
// injection. ValidateSession follows the same delete-on-expiry and
// halflife-renewal contract as the real adapter, guarded by a mutex instead
// of a transaction.
type FakeAuthStorage struct {
	mu       sync.Mutex
	users    map[string]*core.User
	sessions map[string]*core.Session
	requests map[string]*core.VerificationRequest

	// now is the fake clock; tests can move it forward.
	now func() time.Time

	createUserErr error
	getUserErr    error
	sessionErr    error
	requestErr    error
}

func NewFakeAuthStorage() *FakeAuthStorage {
	return &FakeAuthStorage{
		users:    make(map[string]*core.User),
		sessions: make(map[string]*core.Session),
		requests: make(map[string]*core.VerificationRequest),
		now:      time.Now,
	}
}

func (f *FakeAuthStorage) CreateUser(_ context.Context, u *core.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createUserErr != nil {
		return f.createUserErr
	}
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return core.ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return core.ErrEmailTaken
		}
	}
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *FakeAuthStorage) GetUserByID(_ context.Context, id string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *FakeAuthStorage) GetUserByLogin(_ context.Context, identifier string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	for _, u := range f.users {
		if u.Username == identifier || u.Email == identifier {
			clone := *u
			return &clone, nil
		}
	}
	return nil, core.ErrUserNotFound
}

func (f *FakeAuthStorage) SetUserVerified(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return core.ErrUserNotFound
	}
	u.VerifiedAt = &at
	return nil
}

func (f *FakeAuthStorage) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	// Cascades, as the relational schema would.
	for sid, s := range f.sessions {
		if s.UserID == id {
			delete(f.sessions, sid)
		}
	}
	for rid, r := range f.requests {
		if r.UserID == id {
			delete(f.requests, rid)
		}
	}
	return nil
}

func (f *FakeAuthStorage) CreateSession(_ context.Context, s *core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return f.sessionErr
	}
	clone := *s
	f.sessions[s.ID] = &clone
	return nil
}

func (f *FakeAuthStorage) ValidateSession(_ context.Context, sessionID string, lifetime time.Duration) (*core.Session, *core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return nil, nil, f.sessionErr
	}

	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, nil, core.ErrSessionNotFound
	}
	u, ok := f.users[s.UserID]
	if !ok {
		return nil, nil, core.ErrSessionNotFound
	}

	now := f.now()
	if !now.Before(s.ExpiresAt) {
		delete(f.sessions, sessionID)
		return nil, nil, core.ErrSessionNotFound
	}
	if !now.Before(s.ExpiresAt.Add(-lifetime / 2)) {
		s.ExpiresAt = now.Add(lifetime)
	}

	sessionClone := *s
	userClone := *u
	return &sessionClone, &userClone, nil
}

func (f *FakeAuthStorage) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return f.sessionErr
	}
	delete(f.sessions, sessionID)
	return nil
}

func (f *FakeAuthStorage) DeleteUserSessions(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.sessions {
		if s.UserID == userID {
			delete(f.sessions, id)
		}
	}
	return nil
}

func (f *FakeAuthStorage) DeleteExpiredSessions(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	var count int64
	for id, s := range f.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

func (f *FakeAuthStorage) CreateVerificationRequest(_ context.Context, r *core.VerificationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return f.requestErr
	}
	clone := *r
	f.requests[r.ID] = &clone
	return nil
}

func (f *FakeAuthStorage) GetVerificationRequest(_ context.Context, userID, id string) (*core.VerificationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	r, ok := f.requests[id]
	if !ok || r.UserID != userID {
		return nil, core.ErrVerificationNotFound
	}
	clone := *r
	return &clone, nil
}

func (f *FakeAuthStorage) DeleteUserVerificationRequests(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, r := range f.requests {
		if r.UserID == userID {
			delete(f.requests, id)
		}
	}
	return nil
}

// sessionCount reports how many sessions are stored, for assertions.
func (f *FakeAuthStorage) sessionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// requestsForUser returns the stored verification requests of a user.
func (f *FakeAuthStorage) requestsForUser(userID string) []*core.VerificationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*core.VerificationRequest
	for _, r := range f.requests {
		if r.UserID == userID {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out
}

// FakeBucket is a test-only core.Bucket that records consumed keys and can
// be told to reject.
type FakeBucket struct {
	mu       sync.Mutex
	consumed map[string]int
	reject   bool
	err      error
}

func NewFakeBucket() *FakeBucket {
	return &FakeBucket{consumed: make(map[string]int)}
}

func (b *FakeBucket) Consume(_ context.Context, key string, cost int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return false, b.err
	}
	if b.reject {
		return false, nil
	}
	b.consumed[key] += cost
	return true, nil
}

// FakeThrottle is a test-only core.Throttle with injectable behavior.
type FakeThrottle struct {
	mu       sync.Mutex
	consumed []string
	resets   []string
	reject   bool
	err      error
}

func NewFakeThrottle() *FakeThrottle {
	return &FakeThrottle{}
}

func (t *FakeThrottle) Consume(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return false, t.err
	}
	t.consumed = append(t.consumed, key)
	return !t.reject, nil
}

func (t *FakeThrottle) Reset(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resets = append(t.resets, key)
	return nil
}

// FakeMailer is a test-only core.Mailer that records sent codes.
type FakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct {
	to   string
	code string
}

func NewFakeMailer() *FakeMailer {
	return &FakeMailer{}
}

func (m *FakeMailer) SendVerificationCode(_ context.Context, to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, code: code})
	return nil
}

func (m *FakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *FakeMailer) lastSent() (string, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return "", "", false
	}
	last := m.sent[len(m.sent)-1]
	return last.to, last.code, true
}
