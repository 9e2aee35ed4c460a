package session

import (
	"context"
	"net/http"

	"github.com/pharmakart/cartsync/api/responses"
	"github.com/pharmakart/cartsync/api/validators"
	sessionpkg "github.com/pharmakart/cartsync/internal/session"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
	"github.com/pharmakart/cartsync/pkg/logger"
)

// TokenBinder turns an opaque credential into a session binding.
type TokenBinder interface {
	BindToken(token string) (sessionpkg.Binding, error)
}

// Engine is the slice of the reconciliation engine the session handlers use.
type Engine interface {
	MergeOnSignIn(ctx context.Context, binding sessionpkg.Binding) error
	SignOut(ctx context.Context)
	ScopeName() string
}

// BindRequest carries the credential for a sign-in transition.
type BindRequest struct {
	Token string `json:"token" validate:"required"`
}

// SessionView reports the active scope after a transition.
type SessionView struct {
	Scope  string `json:"scope"`
	UserID string `json:"userId,omitempty"`
}

// Bind attaches a user credential to the session and triggers the
// sign-in merge.
func Bind(binder TokenBinder, engine Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if binder == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		var payload BindRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		binding, err := binder.BindToken(payload.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := engine.MergeOnSignIn(r.Context(), binding); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, SessionView{
			Scope:  binding.Scope.String(),
			UserID: binding.Scope.UserID(),
		})
	}
}

// Unbind detaches the session back to the guest scope.
func Unbind(engine Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}

		engine.SignOut(r.Context())
		responses.WriteSuccess(w, SessionView{Scope: engine.ScopeName()})
	}
}
