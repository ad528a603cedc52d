package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/httputil"
)

type listInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FromEmail   string `json:"from_email"`
	FromName    string `json:"from_name"`
}

// GetLists returns all lists with their subscriber counts.
func (h *Handlers) GetLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.store.GetLists(r.Context())
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	type listWithStats struct {
		*domain.List
		Stats *domain.ListStats `json:"stats"`
	}
	out := make([]listWithStats, 0, len(lists))
	for _, l := range lists {
		stats, err := h.store.GetListStats(r.Context(), l.ID)
		if err != nil {
			httputil.InternalError(w, err)
			return
		}
		out = append(out, listWithStats{List: l, Stats: stats})
	}
	httputil.OK(w, map[string]interface{}{"lists": out})
}

// CreateList creates a new list with a generated shortcode.
func (h *Handlers) CreateList(w http.ResponseWriter, r *http.Request) {
	var input listInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	if input.Name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}
	if input.FromEmail != "" && !domain.ValidateEmail(input.FromEmail) {
		httputil.BadRequest(w, "invalid from_email")
		return
	}

	code, err := domain.GenerateShortcode(r.Context(), h.store.ListShortcodeExists)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	list := &domain.List{
		Shortcode:   code,
		Name:        input.Name,
		Description: input.Description,
		FromEmail:   input.FromEmail,
		FromName:    input.FromName,
	}
	if err := h.store.CreateList(r.Context(), list); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, list)
}

// GetList returns a single list with its stats.
func (h *Handlers) GetList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "listID"))
	if !ok {
		return
	}
	list, err := h.store.GetList(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		httputil.NotFound(w, "list not found")
		return
	}
	stats, err := h.store.GetListStats(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"list": list, "stats": stats})
}

// UpdateList modifies a list's name and sender identity. The shortcode is
// immutable.
func (h *Handlers) UpdateList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "listID"))
	if !ok {
		return
	}
	list, err := h.store.GetList(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		httputil.NotFound(w, "list not found")
		return
	}

	var input listInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	if input.Name == "" {
		httputil.BadRequest(w, "name is required")
		return
	}
	if input.FromEmail != "" && !domain.ValidateEmail(input.FromEmail) {
		httputil.BadRequest(w, "invalid from_email")
		return
	}

	list.Name = input.Name
	list.Description = input.Description
	list.FromEmail = input.FromEmail
	list.FromName = input.FromName
	if err := h.store.UpdateList(r.Context(), list); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, list)
}

// DeleteList removes a list and, through FK cascades, its subscribers and
// campaigns.
func (h *Handlers) DeleteList(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "listID"))
	if !ok {
		return
	}
	list, err := h.store.GetList(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		httputil.NotFound(w, "list not found")
		return
	}
	if err := h.store.DeleteList(r.Context(), id); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// GetListStats returns subscriber counts for one list.
func (h *Handlers) GetListStats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, chi.URLParam(r, "listID"))
	if !ok {
		return
	}
	list, err := h.store.GetList(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		httputil.NotFound(w, "list not found")
		return
	}
	stats, err := h.store.GetListStats(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, stats)
}
