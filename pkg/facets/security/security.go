// Package security implements the access-control facet: role-based
// permissions plus short-lived sessions for the entity the facet is
// attached to.
package security

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/polisai/facets-oss/pkg/facet"
)

// FacetType is the identifier the security facet registers under.
const FacetType facet.Type = "security"

// PermissionFinancialOps gates deposit/withdraw style operations.
const PermissionFinancialOps = "financial_operations"

// DefaultSessionTTL applies when New is given a non-positive TTL.
const DefaultSessionTTL = 30 * time.Minute

var (
	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired indicates the session's TTL has elapsed.
	ErrSessionExpired = errors.New("session expired")
)

// Session is an issued authentication session.
type Session struct {
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Security grants or denies named permissions based on an initial role
// preset, and issues expiring sessions.
type Security struct {
	mu             sync.RWMutex
	role           string
	permissions    map[string]bool
	sessions       map[string]Session
	sessionTTL     time.Duration
	failedAttempts int

	now func() time.Time // swapped in tests
}

// New creates a security facet for the given role. Known roles seed a
// permission set; unknown roles start with no permissions and rely on
// Grant.
func New(role string, sessionTTL time.Duration) *Security {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Security{
		role:        role,
		permissions: rolePermissions(role),
		sessions:    make(map[string]Session),
		sessionTTL:  sessionTTL,
		now:         time.Now,
	}
}

func rolePermissions(role string) map[string]bool {
	switch role {
	case "admin":
		return map[string]bool{
			"read": true, "write": true, "delete": true,
			PermissionFinancialOps: true,
		}
	case "manager":
		return map[string]bool{
			"read": true, "write": true,
			PermissionFinancialOps: true,
		}
	case "employee":
		return map[string]bool{"read": true}
	default:
		return map[string]bool{}
	}
}

// FacetType implements facet.Facet.
func (s *Security) FacetType() facet.Type {
	return FacetType
}

// Role returns the role the facet was created with.
func (s *Security) Role() string {
	return s.role
}

// HasPermission reports whether the named permission is granted.
func (s *Security) HasPermission(permission string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions[permission]
}

// Grant enables the named permission.
func (s *Security) Grant(permission string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[permission] = true
}

// Revoke disables the named permission.
func (s *Security) Revoke(permission string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[permission] = false
}

// StartSession issues a new session with a unique ID and the configured
// TTL.
func (s *Security) StartSession() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess := Session{
		ID:        uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	s.sessions[sess.ID] = sess
	return sess
}

// ValidateSession checks a session ID. Expired sessions are removed and
// both unknown and expired IDs count as failed attempts.
func (s *Security) ValidateSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		s.failedAttempts++
		return &SessionNotFoundError{ID: id}
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.sessions, id)
		s.failedAttempts++
		return &SessionExpiredError{ID: id, ExpiredAt: sess.ExpiresAt}
	}
	return nil
}

// EndSession discards a session. Ending an unknown session is a no-op.
func (s *Security) EndSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// FailedAttempts returns the number of failed session validations since
// the facet was created. Retry or lockout policy belongs to the caller.
func (s *Security) FailedAttempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failedAttempts
}

// Operation implements facet.Invoker, exposing has_permission and role.
func (s *Security) Operation(name string) (facet.Operation, bool) {
	switch name {
	case "has_permission":
		return func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("expected 1 permission argument, got %d", len(args))
			}
			perm, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("permission must be a string, got %T", args[0])
			}
			return s.HasPermission(perm), nil
		}, true
	case "role":
		return func(args ...any) (any, error) {
			if len(args) != 0 {
				return nil, fmt.Errorf("role takes no arguments, got %d", len(args))
			}
			return s.Role(), nil
		}, true
	default:
		return nil, false
	}
}

// From returns the security facet attached to c, if present.
func From(c *facet.Container) (*Security, bool) {
	return facet.Lookup[*Security](c, FacetType)
}

// SessionNotFoundError reports an unknown session ID.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.ID)
}

func (e *SessionNotFoundError) Is(target error) bool {
	return target == ErrSessionNotFound
}

// SessionExpiredError reports an expired session.
type SessionExpiredError struct {
	ID        string
	ExpiredAt time.Time
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session %s expired at %s", e.ID, e.ExpiredAt.Format(time.RFC3339))
}

func (e *SessionExpiredError) Is(target error) bool {
	return target == ErrSessionExpired
}
