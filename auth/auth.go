// Package auth provides a pluggable authentication seam. Authentication
// itself is explicitly out of scope for the session coordinator (every
// connection is anonymous by default, identified only by the session
// cookie transport/middleware.go issues); Authenticator exists so a
// deployment can layer real credential verification on top without
// touching the coordinator or transport routing.
package auth

import "net/http"

// Authenticator inspects an inbound request for credentials. ok=false with
// a nil error means no credentials were presented at all, so the caller
// should fall back to the anonymous cookie identity. A non-nil error means
// credentials were presented but rejected.
type Authenticator interface {
	Authenticate(r *http.Request) (userID string, ok bool, err error)
}

// NoopAuthenticator never overrides the anonymous identity; it is the
// default.
type NoopAuthenticator struct{}

func (NoopAuthenticator) Authenticate(r *http.Request) (string, bool, error) {
	return "", false, nil
}
