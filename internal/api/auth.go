package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/AaronLay10/SemanticZoom/internal/config"
)

// Role is an authorization role.
type Role string

const (
	// RoleAdmin may read the event log and discovery history.
	RoleAdmin Role = "admin"
	// RoleAnalyst may open page sessions and upload logs.
	RoleAnalyst Role = "analyst"
)

// Credential environment variables. Each also accepts a *_FILE variant.
const (
	EnvAdminUser   = "SEMZOOM_ADMIN_USER"
	EnvAdminPass   = "SEMZOOM_ADMIN_PASS"
	EnvAnalystUser = "SEMZOOM_ANALYST_USER"
	EnvAnalystPass = "SEMZOOM_ANALYST_PASS"
)

type credential struct {
	user, pass string
	role       Role
}

type authConfig struct {
	creds   []credential
	enabled bool
}

var auth *authConfig

// InitAuth loads credentials. Authentication is enabled only when admin
// credentials are set.
func InitAuth() error {
	secrets, err := config.ResolveSecrets(EnvAdminUser, EnvAdminPass, EnvAnalystUser, EnvAnalystPass)
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}

	a := &authConfig{}
	if secrets[EnvAdminUser] != "" && secrets[EnvAdminPass] != "" {
		a.enabled = true
		a.creds = append(a.creds, credential{secrets[EnvAdminUser], secrets[EnvAdminPass], RoleAdmin})
	}
	if secrets[EnvAnalystUser] != "" && secrets[EnvAnalystPass] != "" {
		a.creds = append(a.creds, credential{secrets[EnvAnalystUser], secrets[EnvAnalystPass], RoleAnalyst})
	}
	auth = a
	return nil
}

// IsAuthEnabled reports whether requests must authenticate.
func IsAuthEnabled() bool {
	return auth != nil && auth.enabled
}

// authenticate returns the caller's role, or "" for bad credentials.
func authenticate(r *http.Request) Role {
	if !IsAuthEnabled() {
		return RoleAdmin
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	for _, c := range auth.creds {
		if secureCompare(user, c.user) && secureCompare(pass, c.pass) {
			return c.role
		}
	}
	return ""
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="Semantic Zoom"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// RequireRole wraps a handler and requires one of the given roles.
func RequireRole(handler http.HandlerFunc, allowed ...Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := authenticate(r)
		if role == "" {
			requireAuth(w)
			return
		}
		for _, a := range allowed {
			if role == a {
				handler(w, r)
				return
			}
		}
		http.Error(w, "Forbidden", http.StatusForbidden)
	}
}

// RequireAnyRole allows admins and analysts.
func RequireAnyRole(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin, RoleAnalyst)
}

// RequireAdmin allows admins only.
func RequireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return RequireRole(handler, RoleAdmin)
}
