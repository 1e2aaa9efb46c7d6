package catalog

import (
	"context"
	"net/http"
	"path"

	"github.com/bissquit/notification-manager/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrIncompleteBody, Status: http.StatusBadRequest, Message: "incomplete body", Details: true},
	{Error: ErrServiceNotFound, Status: http.StatusNotFound, Message: "service not found"},
	{Error: ErrQueueNotFound, Status: http.StatusNotFound, Message: "queue not found"},
	{Error: ErrServiceExists, Status: http.StatusBadRequest, Message: "already exists"},
	{Error: ErrQueueExists, Status: http.StatusBadRequest, Message: "already exists service queue"},
	{Error: ErrInvalidQueueType, Status: http.StatusBadRequest, Message: "queue type doesn't exist"},
}

// Handler handles HTTP requests for services and queues.
type Handler struct {
	service *Service
}

// NewHandler creates a new catalog handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers service and queue routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/queue-types", h.ListQueueTypes)

	r.Route("/services", func(r chi.Router) {
		r.Get("/", h.ListServices)
		r.Post("/", h.CreateService)
		r.Get("/{serviceID}", h.GetService)
		r.Delete("/{serviceID}", h.DeleteService)

		r.Get("/{serviceID}/queues", h.ListQueues)
		r.Post("/{serviceID}/queues", h.CreateQueue)
		r.Get("/{serviceID}/queues/{queueID}", h.GetQueue)
		r.Delete("/{serviceID}/queues/{queueID}", h.DeleteQueue)
		r.Patch("/{serviceID}/queues/{queueID}/activate", h.SwitchQueueStatus)
		r.Patch("/{serviceID}/queues/{queueID}/deactivate", h.SwitchQueueStatus)
	})
}

// ListQueueTypes handles GET /queue-types.
func (h *Handler) ListQueueTypes(w http.ResponseWriter, _ *http.Request) {
	httputil.JSON(w, http.StatusOK, h.service.QueueTypes())
}

// ListServices handles GET /services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context())
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, services)
}

// GetService handles GET /services/{serviceID}.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.GetService(r.Context(), chi.URLParam(r, "serviceID"))
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, service)
}

// CreateService handles POST /services.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req CreateServiceInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	service, err := h.service.CreateService(r.Context(), req)
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, service)
}

// DeleteService handles DELETE /services/{serviceID}.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.DeleteService(r.Context(), chi.URLParam(r, "serviceID"))
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, service)
}

// ListQueues handles GET /services/{serviceID}/queues.
func (h *Handler) ListQueues(w http.ResponseWriter, r *http.Request) {
	queues, err := h.service.ListQueues(r.Context(), chi.URLParam(r, "serviceID"))
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, queues)
}

// GetQueue handles GET /services/{serviceID}/queues/{queueID}.
func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.service.GetQueue(r.Context(), chi.URLParam(r, "serviceID"), chi.URLParam(r, "queueID"))
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, queue)
}

// CreateQueue handles POST /services/{serviceID}/queues.
func (h *Handler) CreateQueue(w http.ResponseWriter, r *http.Request) {
	var req CreateQueueInput
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	queue, err := h.service.CreateQueue(r.Context(), chi.URLParam(r, "serviceID"), req)
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, queue)
}

// DeleteQueue handles DELETE /services/{serviceID}/queues/{queueID}.
func (h *Handler) DeleteQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := h.service.DeleteQueue(r.Context(), chi.URLParam(r, "serviceID"), chi.URLParam(r, "queueID"))
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, queue)
}

// SwitchQueueStatus handles PATCH /services/{serviceID}/queues/{queueID}/{activate|deactivate}.
func (h *Handler) SwitchQueueStatus(w http.ResponseWriter, r *http.Request) {
	activate := path.Base(r.URL.Path) == "activate"

	queue, err := h.service.SwitchQueueStatus(r.Context(), chi.URLParam(r, "serviceID"), chi.URLParam(r, "queueID"), activate)
	if err != nil {
		h.handleError(r.Context(), w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, queue)
}

func (h *Handler) handleError(ctx context.Context, w http.ResponseWriter, err error) {
	httputil.HandleError(ctx, w, err, errorMappings)
}
