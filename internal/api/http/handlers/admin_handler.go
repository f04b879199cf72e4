package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-requests/internal/api/dto"
	"github.com/spec-kit/municipal-requests/internal/auth"
	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/service"
	apperrors "github.com/spec-kit/municipal-requests/pkg/util"
)

// AdminHandler manages the authenticated request endpoints.
type AdminHandler struct {
	service *service.RequestService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(requestService *service.RequestService) *AdminHandler {
	return &AdminHandler{service: requestService}
}

// ListRequests GET /admin/requests.
func (h *AdminHandler) ListRequests(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter, err := parseListQuery(c)
	if err != nil {
		return err
	}
	items, total, err := h.service.List(c.Context(), filter, actor)
	if err != nil {
		return err
	}

	summaries := make([]dto.RequestSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, dto.NewRequestSummary(&items[i]))
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return c.JSON(fiber.Map{"data": dto.PaginatedRequests{
		Items:    summaries,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}})
}

// GetRequest GET /admin/requests/:id.
func (h *AdminHandler) GetRequest(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	req, updates, err := h.service.GetForAdmin(c.Context(), c.Params("id"), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestDetail(req, updates, time.Now())})
}

// AssignStaff POST /admin/requests/:id/assign.
func (h *AdminHandler) AssignStaff(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StaffUserID == "" {
		return apperrors.NewValidationError("staff_user_id is required", nil)
	}

	updated, err := h.service.AssignStaff(c.Context(), c.Params("id"), req.StaffUserID, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestSummary(updated)})
}

// UpdateStatus POST /admin/requests/:id/status.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	newStatus := domain.RequestStatus(req.Status)
	if !newStatus.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}

	updated, err := h.service.ChangeStatus(c.Context(), c.Params("id"), service.StatusChangeInput{
		NewStatus:          newStatus,
		RejectionReason:    req.RejectionReason,
		CompletionPhotoURL: req.CompletionPhotoURL,
		Message:            req.Message,
		Note:               req.Note,
	}, actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestSummary(updated)})
}

// UpdatePriority POST /admin/requests/:id/priority.
func (h *AdminHandler) UpdatePriority(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PriorityUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	updated, err := h.service.ChangePriority(c.Context(), c.Params("id"), domain.RequestPriority(req.Priority), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestSummary(updated)})
}

// AddNote POST /admin/requests/:id/notes.
func (h *AdminHandler) AddNote(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	note, err := h.service.AddInternalNote(c.Context(), c.Params("id"), req.Message, actor)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUpdateResponse(note)})
}

func parseListQuery(c *fiber.Ctx) (service.ListFilter, error) {
	filter := service.ListFilter{
		Page:     parseIntQuery(c, "page", 1),
		PageSize: parseIntQuery(c, "page_size", 20),
	}

	for _, raw := range splitQuery(c.Query("status")) {
		status := domain.RequestStatus(raw)
		if !status.Valid() {
			return filter, apperrors.NewValidationError("unknown status filter", map[string]any{"status": raw})
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range splitQuery(c.Query("category")) {
		category := domain.RequestCategory(raw)
		if !category.Valid() {
			return filter, apperrors.NewValidationError("unknown category filter", map[string]any{"category": raw})
		}
		filter.Categories = append(filter.Categories, category)
	}
	for _, raw := range splitQuery(c.Query("priority")) {
		priority := domain.RequestPriority(raw)
		if !priority.Valid() {
			return filter, apperrors.NewValidationError("unknown priority filter", map[string]any{"priority": raw})
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	if districtID := strings.TrimSpace(c.Query("district_id")); districtID != "" {
		filter.DistrictID = &districtID
	}
	return filter, nil
}

func splitQuery(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func parseIntQuery(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
