package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TriggerAuthorizer guards the manual job trigger endpoint.
type TriggerAuthorizer struct {
	secret      string
	development bool
}

func NewTriggerAuthorizer(secret string, development bool) *TriggerAuthorizer {
	return &TriggerAuthorizer{secret: secret, development: development}
}

// Authorize accepts any caller in development mode, otherwise only
// "Authorization: Bearer <secret>". An empty secret matches nothing.
func (a *TriggerAuthorizer) Authorize(r *http.Request) bool {
	if a.development {
		return true
	}
	if a.secret == "" {
		return false
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.secret)) == 1
}
