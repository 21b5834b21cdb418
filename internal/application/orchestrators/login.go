package orchestrators

import (
	"log/slog"

	"trainingplan/internal/domain/session"
)

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Username string
	Password string
	AsGuest  bool
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Credential session.Credential
	State      session.State
}

// ExecuteLogin sets the ambient role flags for an admin or guest login.
// PRE: State is non-nil
// POST: Admin flags are set only when the password matches the configured credential
func ExecuteLogin(input LoginInput, deps LoginDeps) (session.Session, error) {
	if input.AsGuest {
		sess := session.LoginGuest(deps.State)
		slog.Info("auth_event", "event", "login_success", "role", sess.Role)
		return sess, nil
	}

	sess, err := session.LoginAdmin(deps.State, deps.Credential, input.Username, input.Password)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "username", input.Username, "reason", err.Error())
		return session.Session{}, err
	}

	slog.Info("auth_event", "event", "login_success", "username", sess.Identity, "role", sess.Role)
	return sess, nil
}

// ExecuteLogout clears the role flags.
// POST: Returned session is guest
func ExecuteLogout(state session.State) session.Session {
	sess := session.Logout(state)
	slog.Info("auth_event", "event", "logout")
	return sess
}
