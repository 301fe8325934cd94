package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// tokenAuth checks the bearer token of feed clients. Browsers cannot set
// headers on a websocket handshake, so the token may also come as ?token=.
type tokenAuth struct {
	token string
}

func (a tokenAuth) enabled() bool { return a.token != "" }

func (a tokenAuth) check(r *http.Request) error {
	if !a.enabled() {
		return nil
	}
	got := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		got = strings.TrimPrefix(h, "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func (a tokenAuth) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.check(r); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
