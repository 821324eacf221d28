package staff

import (
	"time"

	"parkly/internal/users"
)

// UserResponse is a user without credentials
type UserResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(user *users.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role.String(),
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

type EmployeeResponse struct {
	User       UserResponse    `json:"user"`
	Assignment *GarageEmployee `json:"assignment"`
}

type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalCount int64          `json:"total_count"`
	TotalPages int            `json:"total_pages"`
}

type EmployeeListResponse struct {
	GarageID  string           `json:"garage_id"`
	Employees []GarageEmployee `json:"employees"`
	Count     int              `json:"count"`
}
