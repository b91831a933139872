package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// AdminHandler manages administrator complaint and user endpoints.
type AdminHandler struct {
	complaints *service.ComplaintService
	users      *service.UserService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(complaintService *service.ComplaintService, userService *service.UserService) *AdminHandler {
	return &AdminHandler{complaints: complaintService, users: userService}
}

// ListComplaints GET /admin/complaints.
func (h *AdminHandler) ListComplaints(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	filter := parseComplaintQuery(c)
	complaints, err := h.complaints.ListAll(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetComplaint GET /admin/complaints/:id.
func (h *AdminHandler) GetComplaint(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	complaint, err := h.complaints.GetForActor(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// UpdateStatus PATCH /admin/complaints/:id/status.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	complaint, err := h.complaints.Transition(c.UserContext(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// AttachResponse PATCH /admin/complaints/:id/response.
func (h *AdminHandler) AttachResponse(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.AttachResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.complaints.AttachResponse(c.UserContext(), principal.User, c.Params("id"), req.Response)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(complaint)})
}

// ListUsers GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)

	users, err := h.users.ListUsers(c.UserContext(), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateUserStatus PUT /admin/users/:id/status.
func (h *AdminHandler) UpdateUserStatus(c *fiber.Ctx) error {
	var req dto.UpdateUserStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.SetUserStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(user)})
}

func parseComplaintQuery(c *fiber.Ctx) service.ComplaintListFilter {
	filter := service.ComplaintListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ComplaintStatus(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.ComplaintCategory(strings.TrimSpace(part)))
		}
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Status:    user.Status,
		CreatedAt: user.CreatedAt,
	}
}
