package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ayyooya/internal/application/usecase"
)

// SessionHandler serves /session.
type SessionHandler struct {
	sessions *usecase.SessionWatcher
	guard    *usecase.InFlight
}

func NewSessionHandler(sessions *usecase.SessionWatcher, guard *usecase.InFlight) *SessionHandler {
	return &SessionHandler{sessions: sessions, guard: guard}
}

func (h *SessionHandler) Routes(r chi.Router) {
	r.Get("/session", h.current)
	r.Post("/session/sign-in", h.signIn)
	r.Post("/session/sign-up", h.signUp)
	r.Post("/session/sign-out", h.signOut)
}

type credentialsRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *SessionHandler) current(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sessions.Current())
}

func (h *SessionHandler) signIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.guard.Do(r.Context(), "session.sign_in", func(ctx context.Context) error {
		_, err := h.sessions.SignIn(ctx, req.Email, req.Password)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Current())
}

func (h *SessionHandler) signUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.guard.Do(r.Context(), "session.sign_up", func(ctx context.Context) error {
		_, err := h.sessions.SignUp(ctx, req.Email, req.Password, req.ConfirmPassword)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.sessions.Current())
}

func (h *SessionHandler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.sessions.Current())
}
