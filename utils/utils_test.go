package utils

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt: the right password matches, a wrong one does not.
func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("p@ss")
	if err != nil {
		t.Fatalf("hash err: %v", err)
	}
	if cost, _ := bcryptCost(hashed); cost < 12 {
		t.Fatalf("cost too low: %d", cost)
	}
	if !CheckPasswordHash("p@ss", hashed) {
		t.Fatalf("should match")
	}
	if CheckPasswordHash("hahaha", hashed) {
		t.Fatalf("should not match")
	}
}

func TestTokenIssueAndVerify(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	token, err := ts.Issue(87, "a@b.com")
	if err != nil {
		t.Fatalf("issue err: %v", err)
	}
	claims, err := ts.Verify(token)
	if err != nil {
		t.Fatalf("verify err: %v", err)
	}
	if claims.UserID != 87 || claims.Email != "a@b.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestVerify_TamperedFails(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	tok, _ := ts.Issue(99, "x@x.com")
	if _, err := ts.Verify(tok + "x"); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_OtherSecretFails(t *testing.T) {
	tok, _ := NewTokenService("one", time.Hour).Issue(1, "x@x.com")
	if _, err := NewTokenService("two", time.Hour).Verify(tok); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerify_ExpiredFails(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	ts.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _ := ts.Issue(1, "x@x.com")

	ts.now = time.Now
	if _, err := ts.Verify(tok); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_NoneAlgorithmRejected(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ts.Verify(tok); err != ErrInvalidToken {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestNewResetToken(t *testing.T) {
	a, err := NewResetToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	b, _ := NewResetToken()
	if len(a) != 64 {
		t.Fatalf("want 64 hex chars, got %d", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Fatalf("not hex: %v", err)
	}
	if a == b {
		t.Fatalf("two tokens collided")
	}
}

// Seeded list/item keys are removed; another event's item survives.
func TestCacheInvalidator_Purge(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inv := NewCacheInvalidator(rdb)

	ctx := context.Background()
	_ = rdb.Set(ctx, EventListKeyPrefix+"page=1", "x", 0).Err()
	_ = rdb.Set(ctx, EventItemKey("abc", "1"), "x", 0).Err()
	_ = rdb.Set(ctx, EventItemKey("abc", "2"), "x", 0).Err()
	_ = rdb.Set(ctx, EventItemKey("other", "1"), "x", 0).Err()

	if err := inv.PurgeEventsList(ctx); err != nil {
		t.Fatalf("purge list: %v", err)
	}
	if err := inv.PurgeEventItem(ctx, "abc"); err != nil {
		t.Fatalf("purge item: %v", err)
	}

	keys := mr.Keys()
	if len(keys) != 1 || keys[0] != EventItemKey("other", "1") {
		t.Fatalf("unexpected keys left: %v", keys)
	}
}

func bcryptCost(hash string) (int, error) { return bcrypt.Cost([]byte(hash)) }
