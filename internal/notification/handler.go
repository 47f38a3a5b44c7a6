package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/splitdraft/pkg/middleware"
	"github.com/fkhayef/splitdraft/pkg/response"
)

// Handler serves the caller's notification inbox
type Handler struct {
	service *Service
}

// NewHandler creates a new notification handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the inbox router. Every route acts on the caller's own
// notifications only.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requireUser)

	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Post("/read-all", h.MarkAllAsRead)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/read", h.MarkAsRead)

	return r
}

// List handles GET /notifications
// @Summary      List my notifications
// @Description  Newest first. Expense notifications carry the expense_id they refer to.
// @Tags         notifications
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Param        unread_only query bool false "Only unread notifications"
// @Success      200 {object} response.APIResponse{data=[]NotificationResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := mustUserID(r)
	page, perPage := pageParams(r)
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))

	items, total, err := h.service.ListByRecipientID(r.Context(), userID, page, perPage, unreadOnly)
	if err != nil {
		response.InternalError(w, "Failed to list notifications")
		return
	}

	out := make([]*NotificationResponse, len(items))
	for i, n := range items {
		out[i] = n.ToResponse()
	}

	response.JSONWithMeta(w, http.StatusOK, out, &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	})
}

// UnreadCount handles GET /notifications/unread-count
// @Summary      Count unread notifications
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.APIResponse{data=UnreadCountResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /notifications/unread-count [get]
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.GetUnreadCount(r.Context(), mustUserID(r))
	if err != nil {
		response.InternalError(w, "Failed to count notifications")
		return
	}

	response.JSON(w, http.StatusOK, UnreadCountResponse{Unread: count})
}

// Get handles GET /notifications/{id}
// @Summary      Get one of my notifications
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} response.APIResponse{data=NotificationResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /notifications/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.GetForRecipient(r.Context(), chi.URLParam(r, "id"), mustUserID(r))
	if err != nil {
		writeError(w, err, "Failed to get notification")
		return
	}

	response.JSON(w, http.StatusOK, n.ToResponse())
}

// MarkAsRead handles POST /notifications/{id}/read
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID"
// @Success      200 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /notifications/{id}/read [post]
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAsRead(r.Context(), chi.URLParam(r, "id"), mustUserID(r)); err != nil {
		writeError(w, err, "Failed to update notification")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Marked as read"})
}

// MarkAllAsRead handles POST /notifications/read-all
// @Summary      Mark every notification as read
// @Tags         notifications
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Failure      401 {object} response.APIResponse
// @Router       /notifications/read-all [post]
func (h *Handler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkAllAsRead(r.Context(), mustUserID(r)); err != nil {
		response.InternalError(w, "Failed to update notifications")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Inbox cleared"})
}

// requireUser rejects requests without an authenticated user
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetUserID(r.Context()); !ok {
			response.Unauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// mustUserID is only valid behind requireUser
func mustUserID(r *http.Request) string {
	userID, _ := middleware.GetUserID(r.Context())
	return userID
}

func pageParams(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotificationNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotRecipient):
		response.Forbidden(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}
