package handler

import (
	"log/slog"
	"net/http"

	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui/components/toast"
	"github.com/joshuanoeldeke/RespectCircle/internal/ui/pages"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	userService    *service.UserService
}

func NewProfileHandler(profileService *service.ProfileService, userService *service.UserService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		userService:    userService,
	}
}

func (h *ProfileHandler) SettingsPage(w http.ResponseWriter, r *http.Request) {
	// The context copy has no password hash
	user, err := h.userService.ByID(ctxkeys.User(r.Context()).ID)
	if err != nil {
		slog.Error("failed to load user", "error", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	data := pages.SettingsData{
		Email:       user.Email,
		HasPassword: user.HasPassword(),
	}
	if profile := ctxkeys.Profile(r.Context()); profile != nil {
		data.Name = profile.Name
	}

	ui.Render(w, r, pages.Settings(data))
}

// UpdateName changes the name credited in new feed posts. Earlier posts keep
// the name they were written under.
func (h *ProfileHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	err := h.profileService.UpdateName(user.ID, r.FormValue("name"))
	if err != nil {
		msg, ok := validationMessage(err)
		if !ok {
			slog.Error("failed to update name", "error", err, "user_id", user.ID)
			msg = "Failed to update name"
		}
		ui.Toast(w, r, toast.Error(msg))
		return
	}

	ui.Toast(w, r, toast.Success("Name updated successfully"))
}
