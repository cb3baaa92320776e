package identity

import (
	"errors"
	"testing"
	"time"
)

func TestMintAndVerify(t *testing.T) {
	j := JWT{Secret: "test-secret"}
	tok, err := j.Mint(Identity{Subject: "u-1", Name: "Asha", Email: "asha@example.org"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	id, err := j.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Subject != "u-1" || id.Name != "Asha" || id.Email != "asha@example.org" {
		t.Fatalf("claims = %+v", id)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, err := JWT{Secret: "a"}.Mint(Identity{Subject: "u-1"}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	_, err = JWT{Secret: "b"}.Verify(tok)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("err = %v, want ErrInvalidCredential", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	past := func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	j := JWT{Secret: "test-secret", Now: past}
	tok, err := j.Mint(Identity{Subject: "u-1"}, time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	later := JWT{Secret: "test-secret", Now: func() time.Time { return past().Add(2 * time.Minute) }}
	if _, err := later.Verify(tok); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expired token err = %v, want ErrInvalidCredential", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	j := JWT{Secret: "test-secret"}
	for _, bad := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := j.Verify(bad); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("Verify(%q) = %v, want ErrInvalidCredential", bad, err)
		}
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	j := JWT{Secret: "test-secret"}
	tok, err := j.Mint(Identity{}, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := j.Verify(tok); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("subject-less token err = %v, want ErrInvalidCredential", err)
	}
}

func TestEmptySecretRefused(t *testing.T) {
	j := JWT{}
	if _, err := j.Mint(Identity{Subject: "u"}, time.Hour); err == nil {
		t.Fatalf("minted with empty secret")
	}
	if _, err := j.Verify("whatever"); err == nil {
		t.Fatalf("verified with empty secret")
	}
}
