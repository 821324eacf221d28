package staff

// CreateGarageAdminRequest provisions a garage_admin account
type CreateGarageAdminRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=100"`
	LastName  string `json:"last_name" validate:"required,min=2,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Phone     string `json:"phone" validate:"required,min=6,max=20"`
}

// CreateEmployeeRequest provisions an employee and assigns them to garage_id.
// Role defaults to scanner.
type CreateEmployeeRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=100"`
	LastName  string `json:"last_name" validate:"required,min=2,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Phone     string `json:"phone" validate:"required,min=6,max=20"`
	GarageID  string `json:"garage_id" validate:"required,uuid"`
	Role      string `json:"role" validate:"omitempty,oneof=supervisor scanner"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=admin garage_admin employee customer"`
}

type UserListQuery struct {
	Role   string `form:"role" binding:"omitempty,oneof=admin garage_admin employee customer"`
	Search string `form:"search" binding:"omitempty,max=100"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
