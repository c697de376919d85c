package handler

import (
	"net/http"
	"strconv"

	"github.com/joshuanoeldeke/RespectCircle/internal/ctxkeys"
	"github.com/joshuanoeldeke/RespectCircle/internal/model"
	"github.com/joshuanoeldeke/RespectCircle/internal/service"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

func (h *FeedHandler) List(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 0)

	entries, err := h.feedService.Recent(page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, feedJSON(e))
	}
	writeOK(w, map[string]any{"entries": out, "page": max(page, 1)})
}

// Post appends a message. Anyone may post under a name of their choosing;
// signed-in users default to their profile name and are linked to the post.
func (h *FeedHandler) Post(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	author, err := p.str("by")
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, err := p.str("text")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var userID string
	if user := ctxkeys.User(r.Context()); user != nil {
		userID = user.ID
		if author == "" {
			author = ctxkeys.AuthorName(r.Context())
		}
	}

	entry, err := h.feedService.Post(r.Context(), userID, author, text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "entry": feedJSON(entry)})
}

// feedPage loads one page of the feed and reports whether an older page may
// exist.
func feedPage(s *service.FeedService, page int) ([]*model.FeedEntry, bool, error) {
	entries, err := s.Recent(page, 0)
	if err != nil {
		return nil, false, err
	}
	return entries, len(entries) == s.PageSize(), nil
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return n
}
