package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/courier/internal/domain"
	"github.com/ignite/courier/internal/pkg/httputil"
)

type subscriberInput struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GetSubscribers returns one page of a list's members.
func (h *Handlers) GetSubscribers(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathUUID(w, chi.URLParam(r, "listID"))
	if !ok {
		return
	}
	list, err := h.store.GetList(r.Context(), listID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		httputil.NotFound(w, "list not found")
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	subs, total, err := h.store.GetSubscribers(r.Context(), listID, limit, offset)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"subscribers": subs,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// CreateSubscriber adds a member to a list. A duplicate email on the same
// list is a conflict, never a silent overwrite.
func (h *Handlers) CreateSubscriber(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathUUID(w, chi.URLParam(r, "listID"))
	if !ok {
		return
	}
	list, err := h.store.GetList(r.Context(), listID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		httputil.NotFound(w, "list not found")
		return
	}

	var input subscriberInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	if !domain.ValidateEmail(input.Email) {
		httputil.BadRequest(w, "invalid email address")
		return
	}

	existing, err := h.store.GetSubscriberByEmail(r.Context(), listID, domain.NormalizeEmail(input.Email))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if existing != nil {
		httputil.Conflict(w, "email already on this list")
		return
	}

	sub := domain.NewSubscriber(listID, input.Email, input.FirstName, input.LastName)
	// Admin-created subscribers skip verification.
	sub.VerificationToken = nil
	if err := h.store.CreateSubscriber(r.Context(), sub); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, sub)
}

// DeleteSubscriber hard-deletes a member. The normal churn path is
// unsubscribe; deletion exists for GDPR-style removal requests.
func (h *Handlers) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	subID, ok := pathUUID(w, chi.URLParam(r, "subscriberID"))
	if !ok {
		return
	}
	sub, err := h.store.GetSubscriber(r.Context(), subID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if sub == nil {
		httputil.NotFound(w, "subscriber not found")
		return
	}
	if err := h.store.DeleteSubscriber(r.Context(), subID); err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

// PublicSubscribe is the unauthenticated signup endpoint, keyed by list
// shortcode so the list UUID never appears in public forms. The subscriber
// is created with a pending verification token.
func (h *Handlers) PublicSubscribe(w http.ResponseWriter, r *http.Request) {
	shortcode := chi.URLParam(r, "shortcode")
	list, err := h.store.GetListByShortcode(r.Context(), shortcode)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		httputil.NotFound(w, "list not found")
		return
	}

	var input subscriberInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	if !domain.ValidateEmail(input.Email) {
		httputil.BadRequest(w, "invalid email address")
		return
	}

	existing, err := h.store.GetSubscriberByEmail(r.Context(), list.ID, domain.NormalizeEmail(input.Email))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if existing != nil {
		// Do not reveal membership to the public endpoint.
		httputil.OK(w, map[string]string{"status": "pending"})
		return
	}

	sub := domain.NewSubscriber(list.ID, input.Email, input.FirstName, input.LastName)
	if err := h.store.CreateSubscriber(r.Context(), sub); err != nil {
		httputil.InternalError(w, err)
		return
	}
	h.log.Info("public signup", "list_id", list.ID.String(), "email", sub.Email)
	httputil.OK(w, map[string]string{"status": "pending"})
}

// PublicVerify confirms a signup via the emailed verification token.
func (h *Handlers) PublicVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httputil.BadRequest(w, "missing token")
		return
	}
	sub, err := h.store.VerifySubscriber(r.Context(), token)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if sub == nil {
		httputil.NotFound(w, "invalid or already used token")
		return
	}
	httputil.OK(w, map[string]string{"status": "verified"})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
