package staff

import (
	"time"

	"parkly/internal/users"

	"github.com/google/uuid"
)

// EmployeeRole is the job an employee does at one garage
type EmployeeRole string

const (
	EmployeeSupervisor EmployeeRole = "supervisor"
	EmployeeScanner    EmployeeRole = "scanner"
)

func (r EmployeeRole) IsValid() bool {
	return r == EmployeeSupervisor || r == EmployeeScanner
}

func (r EmployeeRole) String() string {
	return string(r)
}

// GarageEmployee assigns an employee account to the garage it works at.
// Bookings staff operations are only open to employees with an active row here.
type GarageEmployee struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_garage_employee" json:"user_id"`
	GarageID  uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_garage_employee;index" json:"garage_id"`
	Role      EmployeeRole `gorm:"type:varchar(20);not null;default:'scanner';check:role IN ('supervisor','scanner')" json:"role"`
	StartDate time.Time    `gorm:"not null" json:"start_date"`
	IsActive  bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	User *users.User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (GarageEmployee) TableName() string {
	return "garage_employees"
}

// UserStats counts accounts per role
type UserStats struct {
	Total    int64                `json:"total"`
	Active   int64                `json:"active"`
	Inactive int64                `json:"inactive"`
	ByRole   map[users.Role]int64 `json:"by_role"`
}
