package http

import (
	"net/http"

	"github.com/stockwise/backend-core/internal/application"
)

type googleSignInBody struct {
	IDToken    string `json:"id_token"`
	DeviceName string `json:"device_name"`
}

func (h *Handler) googleSignIn(w http.ResponseWriter, r *http.Request) {
	var body googleSignInBody
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "google_sign_in", err)
		return
	}

	res, err := h.service.SignInWithGoogle(r.Context(), application.GoogleSignInRequest{
		IdentityToken: body.IDToken,
		DeviceName:    body.DeviceName,
		IPAddress:     readIP(r),
		UserAgent:     r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "google_sign_in", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
	DeviceName   string `json:"device_name"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshBody
	if err := decodeBody(r, &body); err != nil {
		writeValidationError(r.Context(), w, "refresh", err)
		return
	}

	res, err := h.service.RefreshTokens(r.Context(), body.RefreshToken, application.TokenContext{
		DeviceName: body.DeviceName,
		IPAddress:  readIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeMappedError(r.Context(), w, "refresh", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
		return
	}
	allDevices := r.URL.Query().Get("all_devices") == "true"

	if err := h.service.Logout(r.Context(), claims, allDevices); err != nil {
		writeMappedError(r.Context(), w, "logout", err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials")
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	sessions, err := h.service.ListSessions(r.Context(), claims, limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": sessions})
}
