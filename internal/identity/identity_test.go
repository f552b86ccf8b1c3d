// README: Tests for the JWT identity verifier.
package identity

import (
	"testing"
	"time"
)

const testSecret = "test-secret"

func TestVerify_RoundTrip(t *testing.T) {
	token, err := Sign(testSecret, "driver-42", RoleDriver, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := NewJWTVerifier(testSecret).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.ID != "driver-42" || id.Role != RoleDriver {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := Sign(testSecret, "rider-1", RoleRider, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewJWTVerifier("other-secret").Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	token, err := Sign(testSecret, "rider-1", RoleRider, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewJWTVerifier(testSecret).Verify(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_UnknownRole(t *testing.T) {
	token, err := Sign(testSecret, "x-1", Role("ghost"), time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewJWTVerifier(testSecret).Verify(token); err != ErrUnknownRole {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	if _, err := NewJWTVerifier(testSecret).Verify("not-a-token"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
