package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-requests/internal/api/dto"
	"github.com/spec-kit/municipal-requests/internal/auth"
	"github.com/spec-kit/municipal-requests/internal/service"
	apperrors "github.com/spec-kit/municipal-requests/pkg/util"
)

// ReportsHandler serves aggregated views for admins.
type ReportsHandler struct {
	service *service.RequestService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(requestService *service.RequestService) *ReportsHandler {
	return &ReportsHandler{service: requestService}
}

// SLACompliance GET /admin/reports/sla.
func (h *ReportsHandler) SLACompliance(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	rate, byCategory, err := h.service.ComplianceReport(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplianceReportResponse(rate, byCategory)})
}
