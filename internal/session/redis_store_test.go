package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"folio/api/internal/store"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	rs, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = rs.Close() })
	return rs, s
}

func ownerSession(sid string) store.RefreshSession {
	return store.RefreshSession{UserID: "owner", SessionID: sid, DisplayName: "Owner"}
}

func TestNewRedisStore(t *testing.T) {
	rs, _ := setupTestRedis(t)
	if err := rs.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not a url"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	rs, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := rs.SaveRefreshSession(ctx, "test-token-hash", ownerSession("sid-1"), time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	got, err := rs.LookupRefreshSession(ctx, "test-token-hash")
	if err != nil {
		t.Fatalf("LookupRefreshSession failed: %v", err)
	}
	if got != ownerSession("sid-1") {
		t.Errorf("expected %+v, got %+v", ownerSession("sid-1"), got)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	rs, s := setupTestRedis(t)
	ctx := context.Background()

	if err := rs.SaveRefreshSession(ctx, "expired-token", ownerSession("sid-2"), time.Now().Add(time.Second)); err != nil {
		t.Fatalf("SaveRefreshSession failed: %v", err)
	}
	s.FastForward(2 * time.Second)

	if _, err := rs.LookupRefreshSession(ctx, "expired-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLookupNonExistentSession(t *testing.T) {
	rs, _ := setupTestRedis(t)
	if _, err := rs.LookupRefreshSession(context.Background(), "non-existent-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSaveAlreadyExpiredSession(t *testing.T) {
	rs, _ := setupTestRedis(t)
	if err := rs.SaveRefreshSession(context.Background(), "late", ownerSession("sid"), time.Now().Add(-time.Minute)); err == nil {
		t.Fatal("expected error saving an expired session")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	rs, _ := setupTestRedis(t)
	ctx := context.Background()

	if err := rs.SaveRefreshSession(ctx, "token-1", ownerSession("sid-1"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save token-1: %v", err)
	}
	if err := rs.SaveRefreshSession(ctx, "token-2", ownerSession("sid-2"), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save token-2: %v", err)
	}

	if err := rs.RevokeRefreshSession(ctx, "token-1"); err != nil {
		t.Fatalf("RevokeRefreshSession failed: %v", err)
	}
	if _, err := rs.LookupRefreshSession(ctx, "token-1"); err == nil {
		t.Error("expected error for revoked token-1, got nil")
	}
	got, err := rs.LookupRefreshSession(ctx, "token-2")
	if err != nil || got.SessionID != "sid-2" {
		t.Fatalf("token-2 should survive, got %+v %v", got, err)
	}

	// Revoking a missing token is not an error.
	if err := rs.RevokeRefreshSession(ctx, "non-existent-token"); err != nil {
		t.Errorf("RevokeRefreshSession for non-existent token failed: %v", err)
	}
}

func TestRevokedAccessTokenExpires(t *testing.T) {
	rs, s := setupTestRedis(t)
	ctx := context.Background()

	if err := rs.RevokeAccessToken(ctx, "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("RevokeAccessToken: %v", err)
	}
	revoked, err := rs.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}

	s.FastForward(2 * time.Minute)
	revoked, err = rs.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("expected revocation to lapse, got %v %v", revoked, err)
	}
}

func TestRevokedSessionExpires(t *testing.T) {
	rs, s := setupTestRedis(t)
	ctx := context.Background()

	if err := rs.RevokeSession(ctx, "sid_1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}
	revoked, err := rs.IsSessionRevoked(ctx, "sid_1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}
	if other, _ := rs.IsSessionRevoked(ctx, "sid_2"); other {
		t.Fatal("expected unrelated session to stay live")
	}

	s.FastForward(2 * time.Hour)
	revoked, err = rs.IsSessionRevoked(ctx, "sid_1")
	if err != nil || revoked {
		t.Fatalf("expected revocation to lapse, got %v %v", revoked, err)
	}
}
