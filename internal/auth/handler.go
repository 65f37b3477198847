package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxAuthBody caps auth request bodies; they only ever carry credentials.
const maxAuthBody = 16 << 10

type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"li.hua"`
	Password string `json:"password" validate:"required" example:"correct-horse"`
}

type SetupRequest struct {
	Username string `json:"username" validate:"required,max=64" example:"admin"`
	Name     string `json:"name" validate:"max=64" example:"园长"`
	Password string `json:"password" validate:"required" example:"correct-horse"`
}

// CreateUserRequest is the body of POST /users. Role defaults to teacher.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=64" example:"li.hua"`
	Name     string `json:"name" validate:"max=64" example:"李华"`
	Password string `json:"password" validate:"required" example:"correct-horse"`
	Role     string `json:"role" validate:"omitempty,oneof=teacher admin" example:"teacher"`
}

// SetupStatusResponse reports whether the first admin is still missing.
type SetupStatusResponse struct {
	SetupRequired bool `json:"setup_required"`
}

// Handler provides HTTP handlers for authentication endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: newValidator(),
		logger:   logger,
	}
}

// RegisterRoutes mounts the auth routes under the versioned API router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/setup", h.handleSetup)
	r.Get("/auth/setup/status", h.handleSetupStatus)

	r.With(RequireAdmin).Get("/users", h.handleListUsers)
	r.With(RequireAdmin).Post("/users", h.handleCreateUser)
}

// Middleware returns the JWT authentication middleware.
func (h *Handler) Middleware() func(http.Handler) http.Handler {
	return AuthMiddleware(h.service.Tokens())
}

// handleLogin exchanges credentials for an access token.
//
//	@Summary		Login
//	@Description	Authenticate with username and password to receive a JWT access token.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Login credentials"
//	@Success		200		{object}	TokenResponse
//	@Failure		400		{object}	server.Problem
//	@Failure		401		{object}	server.Problem
//	@Router			/auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrUserDisabled) {
			writeAuthError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.logger.Error("login error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSetup creates the first admin account.
//
//	@Summary		Initial setup
//	@Description	Create the first admin account. Fails once any account exists.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SetupRequest	true	"Admin account"
//	@Success		201		{object}	User
//	@Failure		400		{object}	server.Problem
//	@Failure		409		{object}	server.Problem
//	@Router			/auth/setup [post]
func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	user, err := h.service.Setup(r.Context(), req.Username, req.Name, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleSetupStatus reports whether initial setup is required.
//
//	@Summary		Setup status
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	SetupStatusResponse
//	@Router			/auth/setup/status [get]
func (h *Handler) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	needed, err := h.service.NeedsSetup(r.Context())
	if err != nil {
		h.logger.Error("setup status error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to check setup status")
		return
	}
	writeJSON(w, http.StatusOK, SetupStatusResponse{SetupRequired: needed})
}

// handleListUsers returns all accounts.
//
//	@Summary		List users
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		User
//	@Failure		403	{object}	server.Problem
//	@Router			/users [get]
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleCreateUser adds a teacher or admin account.
//
//	@Summary		Create user
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateUserRequest	true	"Account"
//	@Success		201		{object}	User
//	@Failure		400		{object}	server.Problem
//	@Failure		403		{object}	server.Problem
//	@Failure		409		{object}	server.Problem
//	@Router			/users [post]
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Username, req.Name, req.Password, role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSetupComplete), errors.Is(err, ErrUserExists):
		writeAuthError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrWeakPassword), errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidCredentials):
		writeAuthError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("account error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "account operation failed")
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// decodeBody reads one JSON object into dst and validates it, writing a
// 400 problem and returning false on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAuthBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	var verrs validator.ValidationErrors
	switch err := h.validate.Struct(dst); {
	case errors.As(err, &verrs):
		fe := verrs[0]
		writeAuthError(w, http.StatusBadRequest, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		return false
	case err != nil:
		writeAuthError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAuthError writes an RFC 7807 problem response.
func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://plangen.dev/problems/auth-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
