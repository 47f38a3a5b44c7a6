package expense

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/splitdraft/internal/directory"
	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/internal/money"
	"github.com/fkhayef/splitdraft/pkg/middleware"
	"github.com/fkhayef/splitdraft/pkg/response"
)

// Handler handles HTTP requests for drafts and expenses
type Handler struct {
	service *Service
}

// NewHandler creates a new expense handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for submitted expenses
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Get("/{id}", h.GetByID)

	return r
}

// DraftRoutes returns the router for the draft editing session
func (h *Handler) DraftRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.StartDraft)
	r.Get("/{id}", h.GetDraft)
	r.Patch("/{id}", h.UpdateDraft)
	r.Delete("/{id}", h.AbandonDraft)

	// Single-line edits
	r.Put("/{id}/splits/{userId}/percentage", h.SetPercentage)
	r.Put("/{id}/splits/{userId}/amount", h.SetAmount)

	r.Post("/{id}/reset", h.ResetDraft)
	r.Post("/{id}/submit", h.Submit)

	return r
}

// StartDraft handles POST /drafts
// @Summary      Start a new expense draft
// @Description  Open a draft with the caller as default payer. Participants come from a group or an explicit list; the caller is always included.
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        request body StartDraftRequest true "Draft start request"
// @Success      201 {object} response.APIResponse{data=DraftResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /drafts [post]
func (h *Handler) StartDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req StartDraftRequest
	if err := decodeOptional(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	d, err := h.service.StartDraft(r.Context(), userID, &req)
	if err != nil {
		writeError(w, err, "Failed to start draft")
		return
	}

	response.JSON(w, http.StatusCreated, d.ToResponse(userID))
}

// GetDraft handles GET /drafts/{id}
// @Summary      Get a draft
// @Description  Get a draft with its split lines, reconciliation status and warnings
// @Tags         drafts
// @Produce      json
// @Param        id path string true "Draft ID"
// @Success      200 {object} response.APIResponse{data=DraftResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /drafts/{id} [get]
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	d, err := h.service.GetDraft(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "Failed to get draft")
		return
	}

	response.JSON(w, http.StatusOK, d.ToResponse(userID))
}

// UpdateDraft handles PATCH /drafts/{id}
// @Summary      Update a draft
// @Description  Change description, category, date, amount, payer, mode or participants. Unedited drafts are recomputed; drafts with manual edits are rescaled keeping each line's percentage. A mode change always reseeds.
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        id path string true "Draft ID"
// @Param        request body UpdateDraftRequest true "Draft update request"
// @Success      200 {object} response.APIResponse{data=DraftResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /drafts/{id} [patch]
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	d, err := h.service.UpdateDraft(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, err, "Failed to update draft")
		return
	}

	response.JSON(w, http.StatusOK, d.ToResponse(userID))
}

// SetPercentage handles PUT /drafts/{id}/splits/{userId}/percentage
// @Summary      Set a line's percentage
// @Description  Percentage mode only. The value is clamped to 0-100; other lines are not touched.
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        id path string true "Draft ID"
// @Param        userId path string true "Participant user ID"
// @Param        request body SetLineRequest true "New percentage"
// @Success      200 {object} response.APIResponse{data=DraftResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /drafts/{id}/splits/{userId}/percentage [put]
func (h *Handler) SetPercentage(w http.ResponseWriter, r *http.Request) {
	h.setLine(w, r, h.service.SetLinePercentage)
}

// SetAmount handles PUT /drafts/{id}/splits/{userId}/amount
// @Summary      Set a line's exact amount
// @Description  Exact mode only. Unreadable or negative input counts as 0; other lines are not touched.
// @Tags         drafts
// @Accept       json
// @Produce      json
// @Param        id path string true "Draft ID"
// @Param        userId path string true "Participant user ID"
// @Param        request body SetLineRequest true "New amount"
// @Success      200 {object} response.APIResponse{data=DraftResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /drafts/{id}/splits/{userId}/amount [put]
func (h *Handler) SetAmount(w http.ResponseWriter, r *http.Request) {
	h.setLine(w, r, h.service.SetLineAmount)
}

type lineEditFunc func(ctx context.Context, userID, draftID, lineUserID, raw string) (*Draft, error)

func (h *Handler) setLine(w http.ResponseWriter, r *http.Request, edit lineEditFunc) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req SetLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	d, err := edit(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "userId"), string(req.Value))
	if err != nil {
		writeError(w, err, "Failed to update split")
		return
	}

	response.JSON(w, http.StatusOK, d.ToResponse(userID))
}

// ResetDraft handles POST /drafts/{id}/reset
// @Summary      Reset manual edits
// @Description  Discard every manual line edit and reseed the current mode
// @Tags         drafts
// @Produce      json
// @Param        id path string true "Draft ID"
// @Success      200 {object} response.APIResponse{data=DraftResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /drafts/{id}/reset [post]
func (h *Handler) ResetDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	d, err := h.service.ResetDraft(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "Failed to reset draft")
		return
	}

	response.JSON(w, http.StatusOK, d.ToResponse(userID))
}

// AbandonDraft handles DELETE /drafts/{id}
// @Summary      Abandon a draft
// @Description  Discard a draft without saving
// @Tags         drafts
// @Produce      json
// @Param        id path string true "Draft ID"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /drafts/{id} [delete]
func (h *Handler) AbandonDraft(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	if err := h.service.AbandonDraft(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, err, "Failed to abandon draft")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "Draft discarded"})
}

// Submit handles POST /drafts/{id}/submit
// @Summary      Submit a draft
// @Description  Validate the form, check that the rounded split amounts reconcile to the total within 0.01 and save the expense. On any failure the draft is kept for correction.
// @Tags         drafts
// @Produce      json
// @Param        id path string true "Draft ID"
// @Success      201 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Failure      422 {object} response.APIResponse
// @Failure      502 {object} response.APIResponse
// @Router       /drafts/{id}/submit [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	created, err := h.service.Submit(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "Failed to submit expense")
		return
	}

	response.JSON(w, http.StatusCreated, created.toResponse())
}

// Preview handles POST /splits/preview
// @Summary      Preview a split
// @Description  Compute a split and its reconciliation status without opening a draft
// @Tags         splits
// @Accept       json
// @Produce      json
// @Param        request body PreviewRequest true "Preview request"
// @Success      200 {object} response.APIResponse{data=PreviewResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /splits/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	result, err := h.service.Preview(&req)
	if err != nil {
		writeError(w, err, "Failed to compute split")
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// GetByID handles GET /expenses/{id}
// @Summary      Get expense by ID
// @Description  Get a submitted expense with all its splits
// @Tags         expenses
// @Produce      json
// @Param        id path string true "Expense ID"
// @Success      200 {object} response.APIResponse{data=ExpenseResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /expenses/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GetExpenseByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, "Failed to get expense")
		return
	}

	response.JSON(w, http.StatusOK, result.toResponse())
}

// List handles GET /expenses
// @Summary      List my expenses
// @Description  Get a paginated list of expenses the caller paid for or takes part in
// @Tags         expenses
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        per_page query int false "Items per page" default(20)
// @Success      200 {object} response.APIResponse{data=[]ExpenseResponse}
// @Router       /expenses [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	expenses, total, err := h.service.ListExpensesByUserID(r.Context(), userID, page, perPage)
	if err != nil {
		response.InternalError(w, "Failed to list expenses")
		return
	}

	expenseResponses := make([]*ExpenseResponse, len(expenses))
	for i, e := range expenses {
		expenseResponses[i] = e.ToResponse()
	}

	totalPages := (total + perPage - 1) / perPage
	meta := &response.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}

	response.JSONWithMeta(w, http.StatusOK, expenseResponses, meta)
}

// writeError maps service errors to API responses
func writeError(w http.ResponseWriter, err error, fallback string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(w, "Please fix the highlighted fields", verr.Fields)
	case errors.Is(err, split.ErrUnreconciled):
		response.Unprocessable(w, err.Error())
	case errors.Is(err, ErrPersistence):
		response.BadGateway(w, err.Error())
	case errors.Is(err, ErrDraftNotFound),
		errors.Is(err, ErrExpenseNotFound),
		errors.Is(err, directory.ErrUserNotFound),
		errors.Is(err, directory.ErrGroupNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotDraftOwner), errors.Is(err, ErrNotGroupMember):
		response.Forbidden(w, err.Error())
	case errors.Is(err, split.ErrUnknownMode),
		errors.Is(err, split.ErrUnknownParticipant),
		errors.Is(err, ErrEditNotAllowed),
		errors.Is(err, ErrDuplicateParticipant),
		errors.Is(err, ErrNoParticipants),
		errors.Is(err, money.ErrAmountTooLarge):
		response.BadRequest(w, err.Error())
	default:
		response.InternalError(w, fallback)
	}
}

// decodeOptional decodes a JSON body, treating an empty body as zero values
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
