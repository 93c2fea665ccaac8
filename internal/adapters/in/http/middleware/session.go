package middleware

import (
	"net/http"

	sessiondom "ayyooya/internal/domain/session"
)

// SessionReader exposes the current shopper session.
type SessionReader interface {
	Current() sessiondom.Session
}

// RequireSession rejects requests when nobody is signed in.
func RequireSession(src SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !src.Current().IsLoggedIn {
				deny(w, http.StatusUnauthorized, "sign in required", "unauthenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests unless an admin is signed in.
func RequireAdmin(src SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := src.Current()
			switch {
			case !s.IsLoggedIn:
				deny(w, http.StatusUnauthorized, "sign in required", "unauthenticated")
			case !s.IsAdmin():
				deny(w, http.StatusForbidden, "admin role required", "forbidden")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func deny(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}
