package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ProfileHandler serves the authenticated user's contact profile.
type ProfileHandler struct {
	users *service.UserService
}

// NewProfileHandler constructs handler.
func NewProfileHandler(userService *service.UserService) *ProfileHandler {
	return &ProfileHandler{users: userService}
}

// Get GET /profile.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	profile, err := h.users.GetProfile(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profileResponse(profile)})
}

// Save PUT /profile. Creates the profile when none exists yet.
func (h *ProfileHandler) Save(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, err := h.users.SaveProfile(c.UserContext(), principal.User.ID, service.ProfileInput{
		Phone:      req.Phone,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": profileResponse(profile)})
}

func profileResponse(profile *domain.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		UserID:     profile.UserID,
		Phone:      profile.Phone,
		Address:    profile.Address,
		City:       profile.City,
		PostalCode: profile.PostalCode,
		UpdatedAt:  profile.UpdatedAt,
	}
}
