package auth

import (
	"context"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	j := New("test-secret")

	tok, err := j.Sign("alice", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sub, err := j.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "alice" {
		t.Errorf("sub = %q, want alice", sub)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	tok, _ := New("secret-a").Sign("alice", time.Hour)
	if _, err := New("secret-b").Verify(tok); err == nil {
		t.Fatal("token signed with another secret verified")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	j := New("test-secret")
	tok, _ := j.Sign("alice", -time.Minute)
	if _, err := j.Verify(tok); err == nil {
		t.Fatal("expired token verified")
	}
}

func TestSignEmptyUsername(t *testing.T) {
	if _, err := New("s").Sign("", time.Hour); err == nil {
		t.Fatal("empty username signed")
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), "bob")
	if got := Username(ctx); got != "bob" {
		t.Errorf("Username = %q, want bob", got)
	}
	if got := Username(context.Background()); got != "anon" {
		t.Errorf("Username on empty ctx = %q, want anon", got)
	}
}
