package notifications

import (
	"context"
	"net/http"
	"path"

	"github.com/bissquit/notification-manager/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrIncompleteBody, Status: http.StatusBadRequest, Message: "incomplete body", Details: true},
	{Error: ErrSubscriptionNotFound, Status: http.StatusNotFound, Message: "not found"},
	{Error: ErrSubscriptionExists, Status: http.StatusBadRequest, Message: "already exists subscription to category"},
}

// Handler handles HTTP requests for subscriptions and notify.
type Handler struct {
	service *Service
}

// NewHandler creates a new notifications handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers notify and subscription routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/notify", h.Notify)
	r.Get("/users/subscriptions", h.ListSubscriptions)

	r.Route("/users/{userID}/subscriptions", func(r chi.Router) {
		r.Get("/", h.ListUserSubscriptions)
		r.Post("/", h.CreateSubscription)
		r.Get("/{subscriptionID}", h.GetSubscription)
		r.Delete("/{subscriptionID}", h.DeleteSubscription)
		r.Post("/{subscriptionID}/activate", h.SwitchSubscriptionStatus)
		r.Post("/{subscriptionID}/deactivate", h.SwitchSubscriptionStatus)
	})
}

// Notify handles POST /notify. The whole body is forwarded as the message;
// its "category" field selects the recipients.
func (h *Handler) Notify(w http.ResponseWriter, r *http.Request) {
	message, err := httputil.DecodeObject(r)
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	category, _ := message["category"].(string)

	if _, err := h.service.SearchUsersBySubscription(r.Context(), category, message); err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, nil)
}

// ListSubscriptions handles GET /users/subscriptions.
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListSubscriptions(r.Context())
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, subs)
}

// ListUserSubscriptions handles GET /users/{userID}/subscriptions.
func (h *Handler) ListUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.service.ListUserSubscriptions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, subs)
}

// CreateSubscription handles POST /users/{userID}/subscriptions.
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	sub, err := h.service.CreateSubscription(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, sub)
}

// GetSubscription handles GET /users/{userID}/subscriptions/{subscriptionID}.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.GetSubscription(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, sub)
}

// DeleteSubscription handles DELETE /users/{userID}/subscriptions/{subscriptionID}.
func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.service.DeleteSubscription(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, sub)
}

// SwitchSubscriptionStatus handles POST /users/{userID}/subscriptions/{subscriptionID}/{activate|deactivate}.
func (h *Handler) SwitchSubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	activate := path.Base(r.URL.Path) == "activate"

	sub, err := h.service.SwitchSubscriptionStatus(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "subscriptionID"), activate)
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, sub)
}

func (h *Handler) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	httputil.HandleError(ctx, w, err, errorMappings)
}
