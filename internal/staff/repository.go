package staff

import (
	"context"
	"errors"
	"strings"

	"parkly/internal/shared/database"
	"parkly/internal/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrAlreadyAssigned    = errors.New("employee already assigned to garage")
	ErrUserHasLedgerItems = errors.New("user still owns wallets or bookings")
)

type Repository interface {
	CreateUser(ctx context.Context, user *users.User) error
	EmailExists(ctx context.Context, email string) (bool, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	ListUsers(ctx context.Context, query UserListQuery) ([]users.User, int64, error)
	Stats(ctx context.Context) (*UserStats, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateRole(ctx context.Context, id uuid.UUID, role users.Role) error
	// HasLedgerHistory reports whether wallets or bookings still reference the user
	HasLedgerHistory(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateAssignment(ctx context.Context, assignment *GarageEmployee) error
	ListAssignments(ctx context.Context, garageID uuid.UUID) ([]GarageEmployee, error)
	DeactivateAssignments(ctx context.Context, userID uuid.UUID) error
	// IsAssigned only counts active assignments of active accounts
	IsAssigned(ctx context.Context, userID, garageID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateUser(ctx context.Context, user *users.User) error {
	if err := database.Conn(ctx, r.db).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&users.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) ListUsers(ctx context.Context, query UserListQuery) ([]users.User, int64, error) {
	var list []users.User
	var total int64

	base := database.Conn(ctx, r.db).Model(&users.User{})
	if query.Role != "" {
		base = base.Where("role = ?", query.Role)
	}
	if query.Search != "" {
		pattern := "%" + strings.ToLower(query.Search) + "%"
		base = base.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern, pattern)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := base.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&list).Error
	return list, total, err
}

func (r *repository) Stats(ctx context.Context) (*UserStats, error) {
	var rows []struct {
		Role     users.Role
		IsActive bool
		Count    int64
	}
	err := database.Conn(ctx, r.db).Model(&users.User{}).
		Select("role, is_active, COUNT(*) AS count").
		Group("role, is_active").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &UserStats{ByRole: map[users.Role]int64{}}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByRole[row.Role] += row.Count
		if row.IsActive {
			stats.Active += row.Count
		} else {
			stats.Inactive += row.Count
		}
	}
	return stats, nil
}

func (r *repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := database.Conn(ctx, r.db).Model(&users.User{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, role users.Role) error {
	result := database.Conn(ctx, r.db).Model(&users.User{}).
		Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) HasLedgerHistory(ctx context.Context, id uuid.UUID) (bool, error) {
	conn := database.Conn(ctx, r.db)

	var wallets int64
	if err := conn.Table("wallets").Where("user_id = ?", id).Count(&wallets).Error; err != nil {
		return false, err
	}
	if wallets > 0 {
		return true, nil
	}

	var bookings int64
	if err := conn.Table("bookings").Where("customer_id = ?", id).Count(&bookings).Error; err != nil {
		return false, err
	}
	return bookings > 0, nil
}

// DeleteUser removes the account together with its garage assignments
func (r *repository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	conn := database.Conn(ctx, r.db)
	if err := conn.Where("user_id = ?", id).Delete(&GarageEmployee{}).Error; err != nil {
		return err
	}
	result := conn.Where("id = ?", id).Delete(&users.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *GarageEmployee) error {
	if err := database.Conn(ctx, r.db).Create(assignment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyAssigned
		}
		return err
	}
	return nil
}

func (r *repository) ListAssignments(ctx context.Context, garageID uuid.UUID) ([]GarageEmployee, error) {
	var list []GarageEmployee
	err := database.Conn(ctx, r.db).
		Preload("User").
		Where("garage_id = ? AND is_active = ?", garageID, true).
		Order("start_date ASC").
		Find(&list).Error
	return list, err
}

func (r *repository) DeactivateAssignments(ctx context.Context, userID uuid.UUID) error {
	return database.Conn(ctx, r.db).Model(&GarageEmployee{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}

func (r *repository) IsAssigned(ctx context.Context, userID, garageID uuid.UUID) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&GarageEmployee{}).
		Joins("JOIN users ON users.id = garage_employees.user_id").
		Where("garage_employees.user_id = ? AND garage_employees.garage_id = ?", userID, garageID).
		Where("garage_employees.is_active = ? AND users.is_active = ?", true, true).
		Count(&count).Error
	return count > 0, err
}
