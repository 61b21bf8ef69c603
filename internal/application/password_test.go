package application

import (
	"errors"
	"strings"
	"testing"
)

var fastParams = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestPasswordHashRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("correct horse", fastParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		hash string
		want error
	}{
		{hash: "", want: ErrInvalidPasswordHash},
		{hash: "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5", want: ErrInvalidPasswordHash},
		{hash: "$argon2id$v=18$m=1,t=1,p=1$c2FsdA$a2V5", want: ErrIncompatiblePasswordVersion},
		{hash: "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", want: ErrInvalidPasswordHash},
		{hash: "$argon2id$v=19$m=1,t=1,p=1$!!!$a2V5", want: ErrInvalidPasswordHash},
	}
	for _, tt := range tests {
		if err := VerifyPassword(tt.hash, "pw"); !errors.Is(err, tt.want) {
			t.Fatalf("VerifyPassword(%q) = %v, want %v", tt.hash, err, tt.want)
		}
	}
}

func TestHashPasswordRequiresInput(t *testing.T) {
	t.Parallel()

	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
