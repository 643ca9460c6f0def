package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/authd/internal/apperrors"
	"github.com/nkiryanov/authd/internal/handlers/render"
	"github.com/nkiryanov/authd/internal/handlers/userctx"
	"github.com/nkiryanov/authd/internal/logger"
)

type passwordChanger interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword string, newPassword string) error
}

type UserHandler struct {
	auth   passwordChanger
	logger logger.Logger
}

func NewUser(auth passwordChanger, l logger.Logger) *UserHandler {
	return &UserHandler{auth: auth, logger: l}
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	type response struct {
		ID    uuid.UUID `json:"id"`
		Email string    `json:"email"`
	}

	// Auth middleware guarantees the user is set
	user, _ := userctx.FromContext(r.Context())
	render.JSON(w, response{ID: user.ID, Email: user.Email})
}

func (h *UserHandler) updatePassword(w http.ResponseWriter, r *http.Request) {
	type UpdatePasswordRequest struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		NewPassword     string `json:"new_password" validate:"required,min=8"`
	}
	type UpdatePasswordSuccessResponse struct {
		Message string `json:"message"`
	}

	data, err := render.BindAndValidate[UpdatePasswordRequest](w, r)
	if err != nil {
		h.logger.Debug("Bad update password request", "error", err)
		return
	}

	user, _ := userctx.FromContext(r.Context())

	err = h.auth.ChangePassword(r.Context(), user.ID, data.CurrentPassword, data.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrIncorrectPassword):
			render.ServiceError(w, "Current password is incorrect", http.StatusBadRequest)
		case errors.Is(err, apperrors.ErrUserNotFound):
			render.ServiceError(w, "User not found", http.StatusNotFound)
		default:
			h.logger.Error("Password update failed", "error", err, "user_id", user.ID)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	render.JSON(w, UpdatePasswordSuccessResponse{Message: "Password updated successfully"})
}
