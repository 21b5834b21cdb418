package web

import (
	"net/http"

	"trainingplan/internal/adapters/http/middleware"
	"trainingplan/internal/application/orchestrators"
	"trainingplan/internal/domain/session"
)

// sessionResponse is what the page script needs to configure the grid.
type sessionResponse struct {
	Role        string                `json:"role"`
	Identity    string                `json:"identity,omitempty"`
	DisplayName string                `json:"displayName"`
	Permissions session.PermissionSet `json:"permissions"`
}

// handleSession handles GET /api/session.
func handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.Header().Set("Allow", "GET")
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sess, _ := middleware.GetSessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{
		Role:        sess.Role,
		Identity:    sess.Identity,
		DisplayName: sess.DisplayName(),
		Permissions: sess.Permissions(),
	})
}

type loginPage struct {
	Error    string
	Username string
}

// handleLogin handles GET (form) and POST (admin or guest sign-in) for /login.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == "GET" {
		renderTemplate(w, r, http.StatusOK, "login.html", loginPage{})
		return
	}
	if r.Method != "POST" {
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	input := orchestrators.LoginInput{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
		AsGuest:  r.FormValue("guest") != "",
	}
	deps := orchestrators.LoginDeps{Credential: credential, State: cookies.State(w, r)}
	if _, err := orchestrators.ExecuteLogin(input, deps); err != nil {
		renderTemplate(w, r, http.StatusUnauthorized, "login.html", loginPage{Error: err.Error(), Username: input.Username})
		return
	}
	http.Redirect(w, r, "/schedule", http.StatusSeeOther)
}

// handleLogout handles POST /logout: flags are cleared and the browser returns to the landing page.
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	orchestrators.ExecuteLogout(cookies.State(w, r))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
