package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Identity is the result of a successful token verification.
type Identity struct {
	UserID string
}

// TokenVerifier is the port to the external identity provider. Only the
// token check is in scope here; issuing tokens is someone else's job.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

var ErrInvalidToken = errors.New("invalid token")

// HMACVerifier accepts tokens of the form "<userId>.<base64url(hmac-sha256
// over userId)>". This is the default deployment shape: the identity
// provider shares a secret with the game server.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if secret == "" {
		return nil, errors.New("hmac verifier requires a non-empty secret")
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

func (v *HMACVerifier) Verify(token string) (Identity, error) {
	userID, sig, ok := strings.Cut(token, ".")
	if !ok || userID == "" {
		return Identity{}, ErrInvalidToken
	}
	want := signHMAC(v.secret, userID)
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if !hmac.Equal(want, got) {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: userID}, nil
}

// SignToken mints a token the HMACVerifier accepts. Used by tests and by
// local tooling; the real issuer lives elsewhere.
func SignToken(secret, userID string) string {
	sig := signHMAC([]byte(secret), userID)
	return userID + "." + base64.RawURLEncoding.EncodeToString(sig)
}

func signHMAC(secret []byte, userID string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(userID))
	return mac.Sum(nil)
}

// StaticVerifier treats the whole token as the user id. Development only.
type StaticVerifier struct{}

func (StaticVerifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: token}, nil
}

// FromConfig selects a verifier by mode name.
func FromConfig(mode, secret string) (TokenVerifier, error) {
	switch mode {
	case "static":
		return StaticVerifier{}, nil
	case "hmac":
		return NewHMACVerifier(secret)
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}
