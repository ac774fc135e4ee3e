// Package token implements the signed session token format shared by the
// server and the terminal client: two base64url JSON segments (header, body)
// joined by '.' and signed with HMAC-SHA256 over the first two segments.
//
// The codec is deliberately expiry-agnostic: Verify only proves integrity.
// Expiry and revocation checks belong to the session guard.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMalformed reports a token that does not split into three segments.
	ErrMalformed = errors.New("token: malformed token")
	// ErrEncoding reports invalid base64 or JSON in a token segment.
	ErrEncoding = errors.New("token: bad segment encoding")
	// ErrSignatureMismatch reports a signature that does not match the payload.
	ErrSignatureMismatch = errors.New("token: signature mismatch")
)

const lifetimeMonths = 1

var encoding = base64.RawURLEncoding

// Header names the signing algorithm, fixed to HMAC-SHA256.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Body is the signed token payload.
type Body struct {
	UserID string `json:"user_id"`
	// Exp is the expiry instant in epoch milliseconds.
	Exp int64 `json:"exp"`
}

// ExpiresAt converts the payload expiry to a time.Time.
func (b Body) ExpiresAt() time.Time {
	return time.UnixMilli(b.Exp)
}

// Codec signs and verifies session tokens with a process-wide secret.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec builds a codec around the given signing secret.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret, now: time.Now}
}

// Issue creates a signed token for the subject, expiring one month from now.
func (c *Codec) Issue(userID string) (string, error) {
	body := Body{
		UserID: userID,
		Exp:    c.now().AddDate(0, lifetimeMonths, 0).UnixMilli(),
	}
	headerJSON, err := json.Marshal(Header{Alg: "HS256", Typ: "JWT"})
	if err != nil {
		return "", ErrEncoding
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return "", ErrEncoding
	}

	payload := encoding.EncodeToString(headerJSON) + "." + encoding.EncodeToString(bodyJSON)
	return payload + "." + c.sign(payload), nil
}

// Verify checks the token's structure and signature and returns its body.
// It does not check expiry.
func (c *Codec) Verify(tok string) (Body, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return Body{}, ErrMalformed
	}

	headerJSON, err := encoding.DecodeString(parts[0])
	if err != nil {
		return Body{}, ErrEncoding
	}
	bodyJSON, err := encoding.DecodeString(parts[1])
	if err != nil {
		return Body{}, ErrEncoding
	}

	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Body{}, ErrEncoding
	}
	var body Body
	if err := json.Unmarshal(bodyJSON, &body); err != nil {
		return Body{}, ErrEncoding
	}

	payload := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(c.sign(payload)), []byte(parts[2])) {
		return Body{}, ErrSignatureMismatch
	}
	return body, nil
}

func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return encoding.EncodeToString(mac.Sum(nil))
}
