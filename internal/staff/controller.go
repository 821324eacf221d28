package staff

import (
	"net/http"

	"parkly/internal/shared/middleware"
	"parkly/internal/shared/utils/response"
	"parkly/internal/shared/validation"
	"parkly/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validation.New(),
	}
}

// CreateGarageAdmin handles POST /api/v1/users/garage-admin
func (c *Controller) CreateGarageAdmin(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateGarageAdminRequest
	if !c.bind(ctx, &req) {
		return
	}

	user, err := c.service.CreateGarageAdmin(ctx.Request.Context(), principal, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Garage admin created successfully", user, nil)
}

// CreateEmployee handles POST /api/v1/users/employee
func (c *Controller) CreateEmployee(ctx *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req CreateEmployeeRequest
	if !c.bind(ctx, &req) {
		return
	}

	employee, err := c.service.CreateEmployee(ctx.Request.Context(), principal, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Employee created successfully", employee, nil)
}

// GetUsers handles GET /api/v1/users
func (c *Controller) GetUsers(ctx *gin.Context) {
	var query UserListQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	result, err := c.service.ListUsers(ctx.Request.Context(), query)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Users retrieved successfully", result, nil)
}

// GetStats handles GET /api/v1/users/stats
func (c *Controller) GetStats(ctx *gin.Context) {
	stats, err := c.service.Stats(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "User statistics retrieved successfully", stats, nil)
}

// GetUser handles GET /api/v1/users/:id
func (c *Controller) GetUser(ctx *gin.Context) {
	principal, id, ok := c.principalAndID(ctx, "id", "Invalid user ID")
	if !ok {
		return
	}

	user, err := c.service.GetUser(ctx.Request.Context(), principal, id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "User retrieved successfully", user, nil)
}

// ToggleActive handles PATCH /api/v1/users/:id/toggle-active
func (c *Controller) ToggleActive(ctx *gin.Context) {
	principal, id, ok := c.principalAndID(ctx, "id", "Invalid user ID")
	if !ok {
		return
	}

	user, err := c.service.ToggleActive(ctx.Request.Context(), principal, id)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	message := "User deactivated successfully"
	if user.IsActive {
		message = "User activated successfully"
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, user, nil)
}

// UpdateRole handles PUT /api/v1/users/:id/role
func (c *Controller) UpdateRole(ctx *gin.Context) {
	principal, id, ok := c.principalAndID(ctx, "id", "Invalid user ID")
	if !ok {
		return
	}

	var req UpdateRoleRequest
	if !c.bind(ctx, &req) {
		return
	}

	user, err := c.service.UpdateRole(ctx.Request.Context(), principal, id, req)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "User role updated successfully", user, nil)
}

// DeleteUser handles DELETE /api/v1/users/:id
func (c *Controller) DeleteUser(ctx *gin.Context) {
	principal, id, ok := c.principalAndID(ctx, "id", "Invalid user ID")
	if !ok {
		return
	}

	if err := c.service.DeleteUser(ctx.Request.Context(), principal, id); err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "User deleted successfully", nil, nil)
}

// GetGarageEmployees handles GET /api/v1/garages/:id/employees
func (c *Controller) GetGarageEmployees(ctx *gin.Context) {
	principal, garageID, ok := c.principalAndID(ctx, "id", "Invalid garage ID")
	if !ok {
		return
	}

	result, err := c.service.ListGarageEmployees(ctx.Request.Context(), principal, garageID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Employees retrieved successfully", result, nil)
}

func (c *Controller) bind(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return false
	}
	if err := c.validator.Struct(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return false
	}
	return true
}

func (c *Controller) principalAndID(ctx *gin.Context, param, invalid string) (principal users.Principal, id uuid.UUID, ok bool) {
	principal, ok = middleware.CurrentPrincipal(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return principal, id, false
	}
	id, err := uuid.Parse(ctx.Param(param))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, invalid, nil, err.Error())
		return principal, id, false
	}
	return principal, id, true
}
