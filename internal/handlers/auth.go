package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/handlers/render"
	"github.com/nkiryanov/authd/internal/logger"
	"github.com/nkiryanov/authd/internal/models"
)

// Auth service as handlers see it
type AuthService interface {
	Register(ctx context.Context, email string, password string) (models.TokenPair, error)
	Login(ctx context.Context, email string, password string) (models.TokenPair, error)
	RefreshPair(ctx context.Context, refresh string) (models.TokenPair, error)

	// Set auth tokens (access header, refresh cookie) on the response
	SetTokenPairToResponse(w http.ResponseWriter, pair models.TokenPair)

	// Get refresh token from the request cookie
	GetRefreshString(r *http.Request) (string, error)

	// Return the user the request is authenticated as
	GetUserFromRequest(ctx context.Context, r *http.Request) (models.User, error)
}

type AuthHandler struct {
	auth   AuthService
	logger logger.Logger
}

func NewAuth(auth AuthService, l logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l}
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	type RegisterRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}
	type RegisterSuccessResponse struct {
		Message     string `json:"message"`
		AccessToken string `json:"access_token"`
	}

	data, err := render.BindAndValidate[RegisterRequest](w, r)
	if err != nil {
		h.logger.Debug("Bad register request", "error", err)
		return
	}

	pair, err := h.auth.Register(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUserAlreadyExists):
			render.ServiceError(w, "User already exists", http.StatusConflict)
		default:
			h.logger.Error("Register failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.auth.SetTokenPairToResponse(w, pair)
	render.JSONWithStatus(w, RegisterSuccessResponse{
		Message:     "User registered successfully",
		AccessToken: pair.Access.Value,
	}, http.StatusCreated)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	type LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	type LoginSuccessResponse struct {
		Message     string `json:"message"`
		AccessToken string `json:"access_token"`
	}

	data, err := render.BindAndValidate[LoginRequest](w, r)
	if err != nil {
		h.logger.Debug("Bad login request", "error", err)
		return
	}

	pair, err := h.auth.Login(r.Context(), data.Email, data.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidCredentials):
			// One message for unknown email and wrong password
			render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
		default:
			h.logger.Error("Login failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.auth.SetTokenPairToResponse(w, pair)
	render.JSON(w, LoginSuccessResponse{
		Message:     "Login successful",
		AccessToken: pair.Access.Value,
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	type RefreshSuccessResponse struct {
		Message     string `json:"message"`
		AccessToken string `json:"access_token"`
	}

	refresh, err := h.auth.GetRefreshString(r)
	if err != nil {
		render.ServiceError(w, "Refresh token missing", http.StatusUnauthorized)
		return
	}

	pair, err := h.auth.RefreshPair(r.Context(), refresh)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidToken):
			render.ServiceError(w, "Could not validate credentials", http.StatusUnauthorized)
		default:
			h.logger.Error("Token refresh failed", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.auth.SetTokenPairToResponse(w, pair)
	render.JSON(w, RefreshSuccessResponse{
		Message:     "Tokens refreshed successfully",
		AccessToken: pair.Access.Value,
	})
}
