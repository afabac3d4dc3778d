package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qrinout/server/internal/qrinout/service"
	"github.com/qrinout/server/internal/qrinout/store"
	"github.com/qrinout/server/internal/qrinout/store/memory"
	"github.com/qrinout/server/internal/qrinout/token"
)

func newAuthFixture(t *testing.T, password string) (*service.DisplayAuth, *memory.CheckpointStore) {
	t.Helper()

	hash, err := service.HashSecret(password)
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	checkpoints := memory.NewCheckpointStore()
	err = checkpoints.AddCheckpoint(context.Background(), store.Checkpoint{
		ID: "cp-1", Name: "Front Gate", Mode: token.ModeStatic, SecretHash: hash,
	})
	if err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}
	return service.NewDisplayAuth(checkpoints, "session-secret", time.Hour), checkpoints
}

func TestDisplayLogin_RoundTrip(t *testing.T) {
	auth, _ := newAuthFixture(t, "hunter2")

	session, expiresAt, err := auth.Login(context.Background(), "cp-1", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if expiresAt.Before(time.Now()) {
		t.Error("session already expired")
	}

	checkpointID, err := auth.Verify(session)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if checkpointID != "cp-1" {
		t.Errorf("session bound to %q, want cp-1", checkpointID)
	}
}

func TestDisplayLogin_WrongPassword(t *testing.T) {
	auth, _ := newAuthFixture(t, "hunter2")

	_, _, err := auth.Login(context.Background(), "cp-1", "hunter3")
	if !errors.Is(err, service.ErrBadCredentials) {
		t.Fatalf("err = %v, want ErrBadCredentials", err)
	}
}

func TestDisplayLogin_UnknownCheckpoint(t *testing.T) {
	auth, _ := newAuthFixture(t, "hunter2")

	_, _, err := auth.Login(context.Background(), "cp-nope", "hunter2")
	if !errors.Is(err, service.ErrBadCredentials) {
		t.Fatalf("err = %v, want ErrBadCredentials", err)
	}
}

func TestDisplayLogin_RemovedCheckpoint(t *testing.T) {
	auth, checkpoints := newAuthFixture(t, "hunter2")
	if err := checkpoints.SoftDeleteCheckpoint(context.Background(), "cp-1", time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, _, err := auth.Login(context.Background(), "cp-1", "hunter2")
	if !errors.Is(err, service.ErrBadCredentials) {
		t.Fatalf("err = %v, want ErrBadCredentials", err)
	}
}

func TestVerify_GarbageSession(t *testing.T) {
	auth, _ := newAuthFixture(t, "hunter2")

	for _, s := range []string{"", "garbage", "a.b.c"} {
		if _, err := auth.Verify(s); !errors.Is(err, service.ErrInvalidSession) {
			t.Errorf("Verify(%q) err = %v, want ErrInvalidSession", s, err)
		}
	}
}

func TestVerify_WrongSigningSecret(t *testing.T) {
	auth, checkpoints := newAuthFixture(t, "hunter2")

	other := service.NewDisplayAuth(checkpoints, "different-secret", time.Hour)
	session, _, err := other.Login(context.Background(), "cp-1", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := auth.Verify(session); !errors.Is(err, service.ErrInvalidSession) {
		t.Fatalf("cross-secret session verified: err = %v", err)
	}
}
