package adminauth_test

import (
	"testing"
	"time"

	"github.com/rsappia/tvargenta/internal/adminauth"
)

const testSecret = "a-secret-that-is-at-least-32-bytes-long"

func TestMintAndValidateRoundTrip(t *testing.T) {
	iss := adminauth.New(testSecret, time.Hour)
	tok, err := iss.Mint()
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	claims, err := iss.Validate(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Scope != "admin" {
		t.Errorf("expected scope admin, got %q", claims.Scope)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	iss := adminauth.New(testSecret, time.Hour)
	tok, _ := iss.Mint()
	other := adminauth.New("a-different-secret-that-is-32-bytes!!", time.Hour)
	if _, err := other.Validate(tok); err == nil {
		t.Fatal("expected validation to fail with a different secret")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	iss := adminauth.New(testSecret, -time.Minute)
	tok, _ := iss.Mint()
	if _, err := iss.Validate(tok); err == nil {
		t.Fatal("expected validation to fail for an expired token")
	}
}

func TestValidateAcceptsTokenFromPrevSecretDuringRotation(t *testing.T) {
	old := adminauth.New(testSecret, time.Hour)
	tok, _ := old.Mint()

	rotated := adminauth.New("a-brand-new-secret-that-is-32-bytes!", time.Hour).WithPrevSecret(testSecret)
	claims, err := rotated.Validate(tok)
	if err != nil {
		t.Fatalf("expected token minted under the previous secret to validate, got: %v", err)
	}
	if claims.Scope != "admin" {
		t.Errorf("expected scope admin, got %q", claims.Scope)
	}
}

func TestValidateRejectsTokenFromNeitherSecret(t *testing.T) {
	stranger := adminauth.New("a-totally-unrelated-secret-32-bytes!", time.Hour)
	tok, _ := stranger.Mint()

	rotated := adminauth.New("a-brand-new-secret-that-is-32-bytes!", time.Hour).WithPrevSecret(testSecret)
	if _, err := rotated.Validate(tok); err == nil {
		t.Fatal("expected validation to fail for a token signed by neither secret")
	}
}

func TestHashAndCheckPasswordRoundTrip(t *testing.T) {
	hash, err := adminauth.HashPassword("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !adminauth.CheckPassword(hash, "correct-horse-battery-staple") {
		t.Error("expected matching password to check out")
	}
	if adminauth.CheckPassword(hash, "wrong-password") {
		t.Error("expected mismatched password to fail")
	}
}
