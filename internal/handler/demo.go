package handler

import (
	"errors"
	"net/http"

	"github.com/joshuanoeldeke/RespectCircle/internal/service"
)

type DemoHandler struct {
	demoService *service.DemoService
}

func NewDemoHandler(demoService *service.DemoService) *DemoHandler {
	return &DemoHandler{
		demoService: demoService,
	}
}

// Reset restores the demo dataset. A failed reset leaves the data as it was
// and reports the reason.
func (h *DemoHandler) Reset(w http.ResponseWriter, r *http.Request) {
	err := h.demoService.Reset(r.Context())
	if errors.Is(err, service.ErrDemoDisabled) {
		writeError(w, r, err)
		return
	}
	if err != nil {
		writeErrorMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeOK(w, map[string]any{"message": "Demo data restored"})
}
