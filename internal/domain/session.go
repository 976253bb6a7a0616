package domain

import (
	"sync"
	"time"
)

// SessionState is the lifecycle state of one connection.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateAuthenticated
	StateAuthorized
	StateJoined
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticated:
		return "authenticated"
	case StateAuthorized:
		return "authorized"
	case StateJoined:
		return "joined"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session is the runtime record of one active connection. It is owned by
// the connection's lifecycle and never persisted.
type Session struct {
	ID           string
	UserID       uint
	Username     string
	Role         string
	EventID      uint
	Token        string
	State        SessionState
	CreatedAt    time.Time
	LastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(id string, eventID uint) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		EventID:      eventID,
		State:        StateConnecting,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Authenticate records the validated identity and advances the state.
func (s *Session) Authenticate(userID uint, username, role, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserID = userID
	s.Username = username
	s.Role = role
	s.Token = token
	s.State = StateAuthenticated
	s.LastActiveAt = time.Now()
}

// Authorize marks the access check as passed.
func (s *Session) Authorize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = StateAuthorized
}

// Join marks the session as a room member.
func (s *Session) Join() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = StateJoined
	s.LastActiveAt = time.Now()
}

// Terminate is idempotent; it returns the state being left and whether
// this call performed the transition, so cleanup runs exactly once under
// concurrent disconnect and in-flight-message races.
func (s *Session) Terminate() (SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == StateTerminated {
		return StateTerminated, false
	}
	prev := s.State
	s.State = StateTerminated
	return prev, true
}

func (s *Session) CurrentState() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State
}

func (s *Session) IsJoined() bool {
	return s.CurrentState() == StateJoined
}

func (s *Session) GetUserID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.UserID
}

func (s *Session) GetUsername() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Username
}

func (s *Session) GetRole() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Role
}

// GetToken returns the credential presented at connect time or rotated
// by a later message.
func (s *Session) GetToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Token
}

// SetToken rotates the session credential.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Token = token
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
