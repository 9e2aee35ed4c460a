package session

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
)

// Manager turns opaque credentials into session bindings. The credential is
// never verified here: the remote store is the authority and rejects stale
// or forged tokens with an authentication failure. The token is only decoded
// to learn which user scope the session belongs to.
type Manager struct {
	parser *jwt.Parser
}

func NewManager() *Manager {
	return &Manager{parser: jwt.NewParser()}
}

// BindToken builds a user-scoped binding from a bearer credential.
func (m *Manager) BindToken(token string) (Binding, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Binding{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "credential is required")
	}

	claims := jwt.MapClaims{}
	if _, _, err := m.parser.ParseUnverified(token, claims); err != nil {
		return Binding{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "malformed credential")
	}

	userID := subjectFromClaims(claims)
	if userID == "" {
		return Binding{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "credential carries no user identity")
	}

	return Binding{Scope: ForUser(userID), Credential: token}, nil
}

func subjectFromClaims(claims jwt.MapClaims) string {
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub
	}
	for _, key := range []string{"id", "user_id", "userId"} {
		if raw, ok := claims[key]; ok {
			switch v := raw.(type) {
			case string:
				if v != "" {
					return v
				}
			case float64:
				return fmt.Sprintf("%.0f", v)
			}
		}
	}
	return ""
}
