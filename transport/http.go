// Package transport is the network edge: the REST API the client calls
// and the websocket channel events are pushed through. It translates
// between wire JSON and the service layer, nothing more.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"chat-relay/auth"
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"chat-relay/services"
)

type contextKey string

const userIDKey contextKey = "user_id"

type API struct {
	log    *slog.Logger
	tokens auth.TokenIssuer
	auth   services.IAuthService
	chat   services.IChatService
	ws     *WSHandler
}

func NewAPI(log *slog.Logger, tokens auth.TokenIssuer,
	authService services.IAuthService, chatService services.IChatService,
	ws *WSHandler) *API {
	return &API{log: log, tokens: tokens, auth: authService, chat: chatService, ws: ws}
}

// Router wires the REST routes the browser client uses plus the
// websocket endpoint. Route shapes follow the client's expectations.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.requestLogger)

	r.HandleFunc("/api/status", a.status).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/signup", a.signup).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", a.login).Methods(http.MethodPost)

	// The websocket handshake authenticates itself from the query string,
	// so it sits outside the header middleware.
	r.HandleFunc("/ws", a.ws.Serve)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(a.requireAuth)
	protected.HandleFunc("/auth/check", a.checkAuth).Methods(http.MethodGet)
	protected.HandleFunc("/auth/update-profile", a.updateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/messages/users", a.sidebar).Methods(http.MethodGet)
	protected.HandleFunc("/messages/mark/{id}", a.markSeen).Methods(http.MethodPut)
	protected.HandleFunc("/messages/send/{id}", a.send).Methods(http.MethodPost)
	protected.HandleFunc("/messages/{id}", a.history).Methods(http.MethodGet)

	return r
}

// requestLogger logs every request with its latency.
func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.log.Debug("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"latency", time.Since(start),
		)
	})
}

// requireAuth accepts either the client's legacy "token" header or a
// standard Authorization bearer and injects the authenticated user ID
// into the request context.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("token")
		if token == "" {
			token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if token == "" {
			a.writeError(w, apperrors.ErrMissingToken)
			return
		}
		userID, err := a.tokens.Validate(token)
		if err != nil {
			a.writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authenticatedUser(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

func (a *API) status(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Server is live"})
}

func (a *API) signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"fullName"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperrors.ErrInvalidInput)
		return
	}
	user, token, err := a.auth.Signup(req.Email, req.FullName, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    toUserJSON(user),
		"token":   token,
	})
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperrors.ErrInvalidInput)
		return
	}
	user, token, err := a.auth.Login(req.Email, req.Password)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    toUserJSON(user),
		"token":   token,
	})
}

func (a *API) checkAuth(w http.ResponseWriter, r *http.Request) {
	user, err := a.auth.CheckAuth(authenticatedUser(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": toUserJSON(user)})
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FullName   string `json:"fullName"`
		Bio        string `json:"bio"`
		ProfilePic string `json:"profilePic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperrors.ErrInvalidInput)
		return
	}
	user, err := a.auth.UpdateProfile(authenticatedUser(r), req.FullName, req.Bio, req.ProfilePic)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": toUserJSON(user)})
}

func (a *API) sidebar(w http.ResponseWriter, r *http.Request) {
	data, err := a.chat.Sidebar(authenticatedUser(r))
	if err != nil {
		a.writeError(w, err)
		return
	}
	users := lo.Map(data.Users, func(u domain.User, _ int) userJSON {
		return toUserJSON(u)
	})
	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"users":          users,
		"unseenMessages": data.UnseenMessages,
	})
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	otherID := mux.Vars(r)["id"]
	messages, err := a.chat.History(authenticatedUser(r), otherID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": lo.Map(messages, func(m domain.Message, _ int) messageJSON { return toMessageJSON(m) }),
	})
}

func (a *API) send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperrors.ErrInvalidInput)
		return
	}
	message, err := a.chat.Send(r.Context(), authenticatedUser(r), mux.Vars(r)["id"], req.Text, req.Image)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"newMessage": toMessageJSON(message),
	})
}

func (a *API) markSeen(w http.ResponseWriter, r *http.Request) {
	if err := a.chat.MarkMessageSeen(mux.Vars(r)["id"]); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.log.Error("Failed to encode response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := apperrors.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.log.Error("Request failed", "error", err)
	}
	a.writeJSON(w, status, map[string]any{"success": false, "message": err.Error()})
}
