package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/parleyhq/chat-backend/internal/adapters/primary/http/middleware"
	"github.com/parleyhq/chat-backend/internal/adapters/primary/validation"
	"github.com/parleyhq/chat-backend/internal/core/domain"
	"github.com/parleyhq/chat-backend/internal/core/ports"
)

// AuthHandler handles HTTP requests for registration and sessions
type AuthHandler struct {
	authService  ports.AuthService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	authService ports.AuthService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "auth"),
	}
}

// RegisterPublicRoutes sets up the unauthenticated auth endpoints.
func (h *AuthHandler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
}

// RegisterProtectedRoutes sets up the session-bound auth endpoints.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/logout", h.HandleLogout)
	r.Post("/refresh", h.HandleRefresh)
	r.Get("/me", h.HandleMe)
}

// --- Request/Response DTOs ---

// RegisterRequest defines the expected JSON body for registration
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

// Validate validates the register request
func (r *RegisterRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("username", r.Username).
		MaxLength("username", r.Username, domain.MaxUsernameLength)

	v.Required("password", r.Password).
		MinLength("password", r.Password, domain.MinPasswordLength).
		MaxLength("password", r.Password, domain.MaxPasswordLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// LoginRequest defines the expected JSON body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate validates the login request
func (r *LoginRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("username", r.Username)
	v.Required("password", r.Password)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// SessionDTO defines the JSON response for an issued session
type SessionDTO struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// AuthResponse is returned by register, login and refresh
type AuthResponse struct {
	Session SessionDTO `json:"session"`
	User    *UserDTO   `json:"user,omitempty"`
}

func toSessionDTO(session *domain.Session) SessionDTO {
	return SessionDTO{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	}
}

// --- Handlers ---

// HandleRegister handles POST /auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[RegisterRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.RegisterParams{
		Username:   req.Username,
		Password:   req.Password,
		Avatar:     req.Avatar,
		DeviceInfo: r.UserAgent(),
	}

	user, session, err := h.authService.Register(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID)

	userDTO := toUserDTO(user)
	WriteCreated(w, AuthResponse{
		Session: toSessionDTO(session),
		User:    &userDTO,
	})
}

// HandleLogin handles POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[LoginRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	user, session, err := h.authService.Login(r.Context(), req.Username, req.Password, r.UserAgent())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)

	userDTO := toUserDTO(user)
	WriteJSON(w, http.StatusOK, AuthResponse{
		Session: toSessionDTO(session),
		User:    &userDTO,
	})
}

// HandleLogout handles POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	token := mw.GetSessionToken(r.Context())

	if err := h.authService.Logout(r.Context(), token); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// HandleRefresh handles POST /auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token := mw.GetSessionToken(r.Context())

	session, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, AuthResponse{
		Session: toSessionDTO(session),
	})
}

// HandleMe handles GET /auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := getAuthUser(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, toUserDTO(user))
}

// getAuthUser extracts the authenticated user from the request context.
// Routes behind SessionAuth always have one; a miss means the middleware
// was not applied.
func getAuthUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := mw.GetAuthUser(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHENTICATED",
		})
		return nil, false
	}
	return user, true
}
