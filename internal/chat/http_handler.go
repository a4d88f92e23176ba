package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/hal9000y/chat-assistant/internal/auth"
)

// sessionCookie identifies the browser session holding a stored credential.
// Clients without the cookie fall back to passing tokens in the request
// body (the stateless deployment).
const sessionCookie = "session_id"

type dispatcher interface {
	Handle(ctx context.Context, message string, cred *auth.Credential) Result
	HandleSession(ctx context.Context, message, sessionID string) Result
}

// HTTPHandler exposes the auth and chat endpoints consumed by the browser
// client.
type HTTPHandler struct {
	store      *auth.Store
	dispatcher dispatcher
}

// NewHTTPHandler creates the HTTP binding over the store and dispatcher.
func NewHTTPHandler(store *auth.Store, d dispatcher) *HTTPHandler {
	return &HTTPHandler{store: store, dispatcher: d}
}

// Register mounts the endpoints on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/url", h.authURL)
	mux.HandleFunc("/api/auth/callback", h.authCallback)
	mux.HandleFunc("/api/auth/logout", h.logout)
	mux.HandleFunc("/api/chat", h.chat)
}

func (h *HTTPHandler) authURL(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}

	url, err := h.store.AuthCodeURL()
	if errors.Is(err, auth.ErrOAuthConfig) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Google OAuth not configured"})
		return
	}
	if err != nil {
		log.Println("store.AuthCodeURL failed", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Unable to build authorization URL"})
		return
	}

	if r.URL.Query().Get("redirect") != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type callbackRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type callbackResponse struct {
	Success bool             `json:"success"`
	User    *auth.User       `json:"user"`
	Tokens  *auth.Credential `json:"tokens"`
}

func (h *HTTPHandler) authCallback(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}

	req := callbackRequest{}
	switch r.Method {
	case http.MethodGet:
		// Direct provider redirect, used when no SPA fronts the flow.
		req.Code = r.URL.Query().Get("code")
		req.State = r.URL.Query().Get("state")
	case http.MethodPost:
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
			return
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	cred, err := h.store.Exchange(r.Context(), req.Code, req.State)
	if errors.Is(err, auth.ErrOAuthConfig) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Google OAuth not configured"})
		return
	}
	if err != nil {
		log.Println("store.Exchange failed", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": exchangeErrorMessage(err)})
		return
	}

	user, err := h.store.UserInfo(r.Context(), cred)
	if err != nil {
		log.Println("store.UserInfo failed", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unable to fetch user info"})
		return
	}

	sessionID, err := newSessionID()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Unable to create session"})
		return
	}
	h.store.Put(sessionID, cred)
	// The local slot feeds transports without a browser session (stdio MCP).
	h.store.Put(auth.LocalSession, cred)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	if r.Method == http.MethodGet {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "Connected as %s, token: %s", user.Email, maskLeft(cred.AccessToken))
		return
	}

	writeJSON(w, http.StatusOK, callbackResponse{Success: true, User: user, Tokens: cred})
}

func (h *HTTPHandler) logout(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}

	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		h.store.Delete(c.Value)
	}
	h.store.Delete(auth.LocalSession)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type chatRequest struct {
	Message string           `json:"message"`
	Tokens  *auth.Credential `json:"tokens,omitempty"`
}

func (h *HTTPHandler) chat(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req := chatRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	var result Result
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" && h.store.Get(c.Value) != nil {
		result = h.dispatcher.HandleSession(r.Context(), req.Message, c.Value)
	} else {
		result = h.dispatcher.Handle(r.Context(), req.Message, req.Tokens)
	}

	writeJSON(w, http.StatusOK, result)
}

// exchangeErrorMessage surfaces the provider's own description when the
// code exchange is rejected.
func exchangeErrorMessage(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorDescription != "" {
		return retrieveErr.ErrorDescription
	}

	return "Unable to authorize provided code"
}

// preflight writes CORS headers and completes OPTIONS requests. The chat
// client may be served from a separate origin in the stateless deployment.
func preflight(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}

	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("json.NewEncoder.Encode failed", err)
	}
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}

	return hex.EncodeToString(b), nil
}

func maskLeft(s string) string {
	rs := []rune(s)
	for i := 0; i < len(rs)-4; i++ {
		rs[i] = 'X'
	}

	return string(rs)
}
