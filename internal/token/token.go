// Package token issues and verifies the signed capability tokens embedded in
// blob URLs: read keys (purpose blob_key) and upload tokens (purpose
// blob_token). Tokens are ephemeral and never persisted.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PurposeBlobKey   = "blob_key"
	PurposeBlobToken = "blob_token"
)

// ErrInvalid covers every verification failure: bad signature, expiry,
// malformed token, or purpose mismatch. Callers cannot distinguish which, by
// design.
var ErrInvalid = errors.New("token: invalid or expired")

// Claims is the union of read-key and upload-token payloads. Read keys use
// Service/Key/ContentType/Disposition; upload tokens use
// Service/Key/ContentType/ContentLength/Checksum.
type Claims struct {
	Purpose       string `json:"purpose"`
	Service       string `json:"service_name"`
	Key           string `json:"key"`
	ContentType   string `json:"content_type,omitempty"`
	Disposition   string `json:"disposition,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
	Checksum      string `json:"checksum,omitempty"`
	jwt.RegisteredClaims
}

// Signer produces and verifies signed token strings. Verification checks
// cryptographic validity, expiry, and purpose in one step.
type Signer interface {
	Sign(c Claims, expiresIn time.Duration, purpose string) (string, error)
	Verify(tokenStr, purpose string) (Claims, error)
}

type HMACSigner struct{ hmac []byte }

func NewHMACSigner(secret string) *HMACSigner { return &HMACSigner{hmac: []byte(secret)} }

// Sign stamps the purpose and expiry onto the claims and signs them. An
// expiresIn of zero produces a non-expiring token (public URLs).
func (s *HMACSigner) Sign(c Claims, expiresIn time.Duration, purpose string) (string, error) {
	now := time.Now()
	c.Purpose = purpose
	c.IssuedAt = jwt.NewNumericDate(now)
	if expiresIn != 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(expiresIn))
	} else {
		c.ExpiresAt = nil
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &c)
	return t.SignedString(s.hmac)
}

func (s *HMACSigner) Verify(tokenStr, purpose string) (Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.hmac, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !t.Valid {
		return Claims{}, ErrInvalid
	}
	c, ok := t.Claims.(*Claims)
	if !ok || c.Purpose != purpose {
		return Claims{}, ErrInvalid
	}
	return *c, nil
}
