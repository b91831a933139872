package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintsHandler manages citizen complaint endpoints.
type ComplaintsHandler struct {
	service *service.ComplaintService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService}
}

// Create POST /complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.ComplaintCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    domain.ComplaintCategory(req.Category),
		Location:    req.Location,
	}
	complaint, err := h.service.Create(c.UserContext(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// List GET /complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	complaints, err := h.service.ListForOwner(c.UserContext(), principal.User, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /complaints/:id.
func (h *ComplaintsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	complaint, err := h.service.GetForActor(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// Track GET /complaints/track/:reference, looking a complaint up by its
// public reference key.
func (h *ComplaintsHandler) Track(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	complaint, err := h.service.TrackByReference(c.UserContext(), principal.User, c.Params("reference"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// Update PATCH /complaints/:id.
func (h *ComplaintsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	patch := service.ComplaintContentPatch{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
	}
	if req.Category != nil {
		category := domain.ComplaintCategory(*req.Category)
		patch.Category = &category
	}
	complaint, err := h.service.EditContent(c.UserContext(), principal.User, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// Delete DELETE /complaints/:id.
func (h *ComplaintsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.service.Delete(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "complaint deleted"}})
}

// MarkResponseRead POST /complaints/:id/response/read.
func (h *ComplaintsHandler) MarkResponseRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if err := h.service.MarkResponseRead(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "response acknowledged"}})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func complaintSummary(complaint *domain.Complaint) dto.ComplaintSummary {
	return dto.ComplaintSummary{
		ID:           complaint.ID,
		Reference:    complaint.Reference,
		Title:        complaint.Title,
		Category:     complaint.Category,
		Location:     complaint.Location,
		Status:       complaint.Status,
		HasResponse:  complaint.HasResponse(),
		ResponseRead: complaint.ResponseRead,
		CreatedAt:    complaint.CreatedAt,
		UpdatedAt:    complaint.UpdatedAt,
	}
}

func complaintDetail(complaint *domain.Complaint) dto.ComplaintDetailResponse {
	return dto.ComplaintDetailResponse{
		ID:           complaint.ID,
		Reference:    complaint.Reference,
		OwnerID:      complaint.OwnerID,
		Title:        complaint.Title,
		Description:  complaint.Description,
		Category:     complaint.Category,
		Location:     complaint.Location,
		Status:       complaint.Status,
		Response:     complaint.Response,
		ResponseRead: complaint.ResponseRead,
		CreatedAt:    complaint.CreatedAt,
		UpdatedAt:    complaint.UpdatedAt,
	}
}
