package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// AdminsHandler exposes directory management and the dashboard.
type AdminsHandler struct {
	admins    *service.AdminService
	dashboard *service.DashboardService
}

// NewAdminsHandler constructs handler.
func NewAdminsHandler(adminService *service.AdminService, dashboard *service.DashboardService) *AdminsHandler {
	return &AdminsHandler{admins: adminService, dashboard: dashboard}
}

// Dashboard handles GET /admins/dashboard/stats.
func (h *AdminsHandler) Dashboard(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	stats, err := h.dashboard.Stats(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewDashboardResponse(stats)})
}

// ListUsers handles GET /admins/users.
func (h *AdminsHandler) ListUsers(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	users, err := h.admins.ListUsers(c.UserContext(), principal, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ApproveUser handles PUT /admins/users/:id/approve?approve=bool.
func (h *AdminsHandler) ApproveUser(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	approve, err := approveFlag(c)
	if err != nil {
		return err
	}
	user, err := h.admins.SetUserActive(c.UserContext(), principal, id, approve)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Create handles POST /admins.
func (h *AdminsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateAdminRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := h.admins.CreateAdmin(c.UserContext(), principal, service.CreateAdminInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAdminResponse(admin)})
}

// List handles GET /admins.
func (h *AdminsHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	admins, err := h.admins.ListAdmins(c.UserContext(), principal, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.AdminResponse, 0, len(admins))
	for i := range admins {
		items = append(items, dto.NewAdminResponse(&admins[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ApproveAdmin handles PUT /admins/:id/approve?approve=bool.
func (h *AdminsHandler) ApproveAdmin(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	approve, err := approveFlag(c)
	if err != nil {
		return err
	}
	admin, err := h.admins.SetAdminActive(c.UserContext(), principal, id, approve)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminResponse(admin)})
}

// approveFlag reads ?approve=, defaulting to true.
func approveFlag(c *fiber.Ctx) (bool, error) {
	raw := c.Query("approve")
	if raw == "" {
		return true, nil
	}
	approve, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperrors.NewValidationError("approve", "approve must be true or false")
	}
	return approve, nil
}
