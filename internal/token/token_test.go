package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewHMACSigner("test-secret")
	in := Claims{
		Service:       "solid_storage",
		Key:           "a/b/c",
		ContentType:   "text/plain",
		ContentLength: 12,
		Checksum:      "abc123",
	}
	tok, err := s.Sign(in, 5*time.Minute, PurposeBlobToken)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	out, err := s.Verify(tok, PurposeBlobToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if out.Service != in.Service || out.Key != in.Key || out.ContentType != in.ContentType ||
		out.ContentLength != in.ContentLength || out.Checksum != in.Checksum {
		t.Fatalf("claims mismatch: got %+v", out)
	}
	if out.Purpose != PurposeBlobToken {
		t.Fatalf("purpose not stamped: %q", out.Purpose)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	s := NewHMACSigner("test-secret")
	tok, err := s.Sign(Claims{Key: "k"}, -time.Minute, PurposeBlobKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Verify(tok, PurposeBlobKey); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestVerifyNoExpiryWhenZero(t *testing.T) {
	s := NewHMACSigner("test-secret")
	tok, err := s.Sign(Claims{Key: "k"}, 0, PurposeBlobKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	c, err := s.Verify(tok, PurposeBlobKey)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.ExpiresAt != nil {
		t.Fatalf("expected no exp claim, got %v", c.ExpiresAt)
	}
}

func TestVerifyRejectsPurposeMismatch(t *testing.T) {
	s := NewHMACSigner("test-secret")
	tok, err := s.Sign(Claims{Key: "k"}, time.Minute, PurposeBlobKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := s.Verify(tok, PurposeBlobToken); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestVerifyRejectsTampering(t *testing.T) {
	s := NewHMACSigner("test-secret")
	tok, err := s.Sign(Claims{Key: "k"}, time.Minute, PurposeBlobKey)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Flip a character in the payload segment.
	parts := strings.Split(tok, ".")
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	parts[1] = string(payload)
	if _, err := s.Verify(strings.Join(parts, "."), PurposeBlobKey); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for tampered token, got %v", err)
	}

	if _, err := NewHMACSigner("other-secret").Verify(tok, PurposeBlobKey); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for wrong secret, got %v", err)
	}
}
