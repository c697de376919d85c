package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui/components/toast"
)

type AccountHandler struct {
	authService *service.AuthService
	userService *service.UserService
}

func NewAccountHandler(authService *service.AuthService, userService *service.UserService) *AccountHandler {
	return &AccountHandler{
		authService: authService,
		userService: userService,
	}
}

// ChangePassword sets or replaces the password. Passwordless accounts are not
// asked for a current password.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.userService.UpdatePassword(user.ID, r.FormValue("current_password"), r.FormValue("new_password"))
	if err != nil {
		msg, ok := validationMessage(err)
		switch {
		case ok:
		case errors.Is(err, service.ErrInvalidCurrentPassword):
			msg = "Current password is incorrect"
		default:
			slog.Error("failed to change password", "error", err, "user_id", user.ID)
			msg = "Failed to update password"
		}
		ui.Toast(w, r, toast.Error(msg))
		return
	}

	slog.Info("password changed", "user_id", user.ID)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/app/settings")
	}
	ui.Toast(w, r, toast.Success("Password updated"))
}

func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.userService.DeleteAccount(user.ID)
	if err != nil {
		slog.Error("failed to delete account", "error", err, "user_id", user.ID)
		ui.Toast(w, r, toast.Error("Failed to delete account"))
		return
	}

	slog.Info("account deleted", "user_id", user.ID)
	h.authService.ClearJWTCookie(w)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
