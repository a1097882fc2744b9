package checkin

import (
    "errors"
    "strings"
    "testing"
    "time"
)

func TestQRTokenRoundTrip(t *testing.T) {
    codec := NewQRTokenCodec("test-secret", 5*time.Minute)
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)

    tok := codec.Issue(42, 9, now)
    if !strings.HasPrefix(tok, "chk1:42:9:") {
        t.Fatalf("unexpected token shape: %s", tok)
    }

    bookingID, classID, err := codec.Decode(tok, now.Add(2*time.Minute))
    if err != nil {
        t.Fatalf("decode: %v", err)
    }
    if bookingID != 42 || classID != 9 {
        t.Fatalf("decoded %d/%d, want 42/9", bookingID, classID)
    }
}

func TestQRTokenExpired(t *testing.T) {
    codec := NewQRTokenCodec("test-secret", 5*time.Minute)
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)

    tok := codec.Issue(42, 9, now)
    // 6 minutes old with a 5 minute validity window.
    if _, _, err := codec.Decode(tok, now.Add(6*time.Minute)); !errors.Is(err, ErrTokenExpired) {
        t.Fatalf("err = %v, want ErrTokenExpired", err)
    }
}

func TestQRTokenTampered(t *testing.T) {
    codec := NewQRTokenCodec("test-secret", 5*time.Minute)
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)

    tok := codec.Issue(42, 9, now)
    // Swap the booking ID without re-signing.
    forged := strings.Replace(tok, ":42:", ":43:", 1)
    if _, _, err := codec.Decode(forged, now); !errors.Is(err, ErrTokenSignature) {
        t.Fatalf("err = %v, want ErrTokenSignature", err)
    }
}

func TestQRTokenWrongSecret(t *testing.T) {
    now := time.Date(2025, 6, 2, 9, 45, 0, 0, time.UTC)
    tok := NewQRTokenCodec("secret-a", 5*time.Minute).Issue(42, 9, now)
    if _, _, err := NewQRTokenCodec("secret-b", 5*time.Minute).Decode(tok, now); !errors.Is(err, ErrTokenSignature) {
        t.Fatalf("err = %v, want ErrTokenSignature", err)
    }
}

func TestQRTokenMalformed(t *testing.T) {
    codec := NewQRTokenCodec("test-secret", 5*time.Minute)
    now := time.Now()
    for _, tok := range []string{"", "chk1:1:2", "nope:1:2:3:sig", "chk1:x:2:3:sig"} {
        if _, _, err := codec.Decode(tok, now); err == nil {
            t.Fatalf("expected error for %q", tok)
        }
    }
}
