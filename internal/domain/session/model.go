package session

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Role constants
const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

// Ambient state keys, shared with the browser page.
const (
	KeyRole     = "userRole"
	KeyUsername = "username"
)

// Domain errors
var (
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrWrongPassword = errors.New("incorrect username or password")
	ErrEmptyPassword = errors.New("password cannot be empty")
)

// Session is the caller's resolved role. Identity is cosmetic and empty for guests.
type Session struct {
	Role     string
	Identity string
}

// IsAdmin returns true if the session has admin role.
// INVARIANT: Session fields are not mutated
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Guest is the session used whenever no admin flag is present.
func Guest() Session {
	return Session{Role: RoleGuest}
}

// DisplayName renders the user label shown next to the logout button.
func (s Session) DisplayName() string {
	if !s.IsAdmin() {
		return "User: Guest"
	}
	name := s.Identity
	if name == "" {
		name = "Unknown"
	}
	return "User: Admin (" + name + ")"
}

// PermissionSet is derived from a role and never stored.
type PermissionSet struct {
	CanEdit           bool `json:"canEdit"`
	CanUseContextMenu bool `json:"canUseContextMenu"`
	HasSpareRow       bool `json:"hasSpareRow"`
	CanImport         bool `json:"canImport"`
	CanExport         bool `json:"canExport"`
	CanDelete         bool `json:"canDelete"`
}

// Permissions maps a role to its permission set. Unknown roles get guest rights.
func Permissions(role string) PermissionSet {
	if role == RoleAdmin {
		return PermissionSet{
			CanEdit:           true,
			CanUseContextMenu: true,
			HasSpareRow:       true,
			CanImport:         true,
			CanExport:         true,
			CanDelete:         true,
		}
	}
	return PermissionSet{CanExport: true}
}

// Permissions returns the permission set for this session.
func (s Session) Permissions() PermissionSet {
	return Permissions(s.Role)
}

// State is the ambient per-tab key/value state a session is resolved from.
type State interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Resolve derives the session from ambient state.
// PRE: state is non-nil
// POST: Returns admin only when the role value is exactly "admin"
// INVARIANT: state is only read
func Resolve(state State) Session {
	role, _ := state.Get(KeyRole)
	if role != RoleAdmin {
		return Guest()
	}
	name, _ := state.Get(KeyUsername)
	return Session{Role: RoleAdmin, Identity: name}
}

// Logout clears the ambient flags and re-resolves.
// POST: Both keys removed; the returned session is always guest
func Logout(state State) Session {
	state.Remove(KeyRole)
	state.Remove(KeyUsername)
	return Resolve(state)
}

// Credential is the configured admin login.
type Credential struct {
	Username     string
	PasswordHash string
}

// HashPassword hashes a plaintext admin password with bcrypt.
// PRE: plaintext is non-empty
// POST: Returns a bcrypt hash suitable for Credential.PasswordHash
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Check verifies a username/password pair against the credential.
// INVARIANT: Credential fields are not mutated
func (c Credential) Check(username, password string) error {
	if c.PasswordHash == "" || !strings.EqualFold(strings.TrimSpace(username), c.Username) {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// LoginAdmin verifies the credentials and sets the admin flags.
// PRE: state is non-nil
// POST: On success state holds userRole=admin and the username; on failure state is untouched
func LoginAdmin(state State, cred Credential, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Session{}, ErrEmptyUsername
	}
	if err := cred.Check(username, password); err != nil {
		return Session{}, err
	}
	state.Set(KeyRole, RoleAdmin)
	state.Set(KeyUsername, username)
	return Resolve(state), nil
}

// LoginGuest sets the guest flag and clears any stale username.
func LoginGuest(state State) Session {
	state.Set(KeyRole, RoleGuest)
	state.Remove(KeyUsername)
	return Resolve(state)
}
