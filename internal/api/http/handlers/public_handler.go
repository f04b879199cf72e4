package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/municipal-requests/internal/api/dto"
	"github.com/spec-kit/municipal-requests/internal/domain"
	"github.com/spec-kit/municipal-requests/internal/repository"
	"github.com/spec-kit/municipal-requests/internal/service"
	apperrors "github.com/spec-kit/municipal-requests/pkg/util"
)

// PublicHandler serves the unauthenticated citizen surface.
type PublicHandler struct {
	requests  *service.RequestService
	districts repository.DistrictRepository
}

// NewPublicHandler constructs handler.
func NewPublicHandler(requests *service.RequestService, districts repository.DistrictRepository) *PublicHandler {
	return &PublicHandler{requests: requests, districts: districts}
}

// ListDistricts GET /public/districts.
func (h *PublicHandler) ListDistricts(c *fiber.Ctx) error {
	districts, err := h.districts.List(c.Context())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewDistrictResponses(districts)})
}

// SubmitRequest POST /public/requests.
func (h *PublicHandler) SubmitRequest(c *fiber.Ctx) error {
	var req dto.SubmitRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.DistrictID == "" {
		return apperrors.NewValidationError("district_id is required", nil)
	}

	created, err := h.requests.Create(c.Context(), service.CreateInput{
		Category:    domain.RequestCategory(req.Category),
		DistrictID:  req.DistrictID,
		Description: req.Description,
		AddressText: req.AddressText,
		LocationLat: req.LocationLat,
		LocationLng: req.LocationLng,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"tracking_code": created.TrackingCode,
		"status":        string(created.Status),
		"sla_deadline":  created.SLADeadline,
		"created_at":    created.CreatedAt,
	}})
}

// TrackRequest GET /public/requests/:code.
func (h *PublicHandler) TrackRequest(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	if code == "" {
		return apperrors.NewValidationError("tracking code required", nil)
	}
	req, updates, err := h.requests.TrackByCode(c.Context(), code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTrackingResponse(req, updates)})
}

// AddMessage POST /public/requests/:code/message.
func (h *PublicHandler) AddMessage(c *fiber.Ctx) error {
	var req dto.CitizenMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	request, updates, err := h.requests.AddCitizenMessage(c.Context(), c.Params("code"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTrackingResponse(request, updates)})
}
