package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
)

func TestScopeStorageKeys(t *testing.T) {
	t.Parallel()

	if key := Guest().StorageKey(); key != "guest_cart" {
		t.Fatalf("unexpected guest key %q", key)
	}
	if key := ForUser("u-77").StorageKey(); key != "cart_u-77" {
		t.Fatalf("unexpected user key %q", key)
	}
	if Guest().String() != "guest" || ForUser("u-77").String() != "user:u-77" {
		t.Fatal("unexpected scope string forms")
	}
}

func TestBindTokenExtractsSubject(t *testing.T) {
	t.Parallel()

	token := signedToken(t, jwt.MapClaims{"sub": "user-42"})
	binding, err := NewManager().BindToken("Bearer " + token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if binding.Scope.UserID() != "user-42" {
		t.Fatalf("unexpected user id %q", binding.Scope.UserID())
	}
	if binding.Credential != token {
		t.Fatal("credential should be stored without the bearer prefix")
	}
}

func TestBindTokenFallsBackToIDClaim(t *testing.T) {
	t.Parallel()

	token := signedToken(t, jwt.MapClaims{"id": "abc123"})
	binding, err := NewManager().BindToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if binding.Scope.UserID() != "abc123" {
		t.Fatalf("unexpected user id %q", binding.Scope.UserID())
	}
}

func TestBindTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	mgr := NewManager()

	if _, err := mgr.BindToken(""); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("empty token should be unauthorized, got %v", err)
	}
	if _, err := mgr.BindToken("not-a-jwt"); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("malformed token should be unauthorized, got %v", err)
	}

	anonymous := signedToken(t, jwt.MapClaims{"role": "customer"})
	if _, err := mgr.BindToken(anonymous); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("token without identity should be unauthorized, got %v", err)
	}
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}
