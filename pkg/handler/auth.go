package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authenticator decides whether a request may use the admin actions.
type Authenticator interface {
	Authorized(r *http.Request) bool
}

// BearerAuthenticator compares the bearer token against a single shared secret.
// An empty secret authorizes nobody.
type BearerAuthenticator struct {
	secret []byte
}

func NewBearerAuthenticator(secret string) *BearerAuthenticator {
	return &BearerAuthenticator{secret: []byte(secret)}
}

func (a *BearerAuthenticator) Authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || len(a.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), a.secret) == 1
}
