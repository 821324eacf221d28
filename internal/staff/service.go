package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"parkly/internal/audit"
	"parkly/internal/garages"
	"parkly/internal/notifications"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/database"
	"parkly/internal/users"
	"parkly/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// GarageDirectory resolves the garage an employee is assigned to
type GarageDirectory interface {
	GetGarageByID(ctx context.Context, id uuid.UUID) (*garages.Garage, error)
}

type Service interface {
	CreateGarageAdmin(ctx context.Context, principal users.Principal, req CreateGarageAdminRequest) (*UserResponse, error)
	CreateEmployee(ctx context.Context, principal users.Principal, req CreateEmployeeRequest) (*EmployeeResponse, error)
	GetUser(ctx context.Context, principal users.Principal, id uuid.UUID) (*UserResponse, error)
	ListUsers(ctx context.Context, query UserListQuery) (*UserListResponse, error)
	Stats(ctx context.Context) (*UserStats, error)
	ToggleActive(ctx context.Context, principal users.Principal, id uuid.UUID) (*UserResponse, error)
	UpdateRole(ctx context.Context, principal users.Principal, id uuid.UUID, req UpdateRoleRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, principal users.Principal, id uuid.UUID) error
	ListGarageEmployees(ctx context.Context, principal users.Principal, garageID uuid.UUID) (*EmployeeListResponse, error)

	// IsAssigned reports whether userID works at garageID
	IsAssigned(ctx context.Context, userID, garageID uuid.UUID) (bool, error)
}

type service struct {
	repo     Repository
	garages  GarageDirectory
	tx       database.Transactor
	notifier notifications.Notifier
	audit    audit.Recorder
	log      *logger.Logger
	now      func() time.Time
}

// NewService wires user administration. notifier and recorder may be nil.
func NewService(repo Repository, garageDir GarageDirectory, tx database.Transactor, notifier notifications.Notifier, recorder audit.Recorder, log *logger.Logger) Service {
	if log == nil {
		log = logger.GetDefault()
	}
	return &service{
		repo:     repo,
		garages:  garageDir,
		tx:       tx,
		notifier: notifier,
		audit:    recorder,
		log:      log,
		now:      time.Now,
	}
}

func (s *service) CreateGarageAdmin(ctx context.Context, principal users.Principal, req CreateGarageAdminRequest) (*UserResponse, error) {
	if principal.Role != users.RoleAdmin {
		return nil, apperrors.Forbidden(nil, "only admins can create garage admins")
	}

	user, err := s.newUser(req.FirstName, req.LastName, req.Email, req.Phone, req.Password, users.RoleGarageAdmin)
	if err != nil {
		return nil, err
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}

	s.welcome(ctx, user, "You can now register your garages and manage their staff.")
	s.record(ctx, principal, "Garage admin created", user.ID, map[string]interface{}{
		"email": user.Email,
	})

	resp := newUserResponse(user)
	return &resp, nil
}

func (s *service) CreateEmployee(ctx context.Context, principal users.Principal, req CreateEmployeeRequest) (*EmployeeResponse, error) {
	if principal.Role != users.RoleGarageAdmin && principal.Role != users.RoleAdmin {
		return nil, apperrors.Forbidden(nil, "only garage admins can create employees")
	}

	garageID, err := uuid.Parse(req.GarageID)
	if err != nil {
		return nil, apperrors.Validation(err, "invalid garage ID")
	}
	role := EmployeeRole(req.Role)
	if role == "" {
		role = EmployeeScanner
	}
	if !role.IsValid() {
		return nil, apperrors.Validation(nil, "invalid employee role %q", req.Role)
	}

	garage, err := s.managedGarage(ctx, principal, garageID)
	if err != nil {
		return nil, err
	}

	user, err := s.newUser(req.FirstName, req.LastName, req.Email, req.Phone, req.Password, users.RoleEmployee)
	if err != nil {
		return nil, err
	}

	assignment := &GarageEmployee{
		GarageID:  garage.ID,
		Role:      role,
		StartDate: s.now(),
		IsActive:  true,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.createUser(ctx, user); err != nil {
			return err
		}
		assignment.UserID = user.ID
		if err := s.repo.CreateAssignment(ctx, assignment); err != nil {
			if errors.Is(err, ErrAlreadyAssigned) {
				return apperrors.Conflict(err, "employee is already assigned to this garage")
			}
			return apperrors.Internal(err, "failed to assign employee")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.welcome(ctx, user, fmt.Sprintf("You are now a %s at %s.", role, garage.Name))
	s.record(ctx, principal, "Employee created", user.ID, map[string]interface{}{
		"email":         user.Email,
		"garage_id":     garage.ID.String(),
		"employee_role": role.String(),
	})

	return &EmployeeResponse{User: newUserResponse(user), Assignment: assignment}, nil
}

// GetUser is open to admins and to the account itself
func (s *service) GetUser(ctx context.Context, principal users.Principal, id uuid.UUID) (*UserResponse, error) {
	if principal.Role != users.RoleAdmin && principal.UserID != id {
		return nil, apperrors.Forbidden(nil, "not allowed to view this user")
	}
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := newUserResponse(user)
	return &resp, nil
}

func (s *service) ListUsers(ctx context.Context, query UserListQuery) (*UserListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}
	query.Search = strings.TrimSpace(query.Search)

	list, total, err := s.repo.ListUsers(ctx, query)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list users")
	}

	out := make([]UserResponse, 0, len(list))
	for i := range list {
		out = append(out, newUserResponse(&list[i]))
	}
	return &UserListResponse{
		Users:      out,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalCount: total,
		TotalPages: int((total + int64(query.Limit) - 1) / int64(query.Limit)),
	}, nil
}

func (s *service) Stats(ctx context.Context) (*UserStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to load user statistics")
	}
	return stats, nil
}

func (s *service) ToggleActive(ctx context.Context, principal users.Principal, id uuid.UUID) (*UserResponse, error) {
	if principal.Role != users.RoleAdmin {
		return nil, apperrors.Forbidden(nil, "only admins can activate or deactivate accounts")
	}
	if principal.UserID == id {
		return nil, apperrors.Conflict(nil, "you cannot deactivate your own account")
	}

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive := user.IsActive
	if err := s.repo.SetActive(ctx, id, !wasActive); err != nil {
		return nil, apperrors.Internal(err, "failed to update account")
	}
	user.IsActive = !wasActive

	action := "User activated"
	if wasActive {
		action = "User deactivated"
	}
	s.record(ctx, principal, action, id, map[string]interface{}{
		"was_active": wasActive,
	})

	resp := newUserResponse(user)
	return &resp, nil
}

func (s *service) UpdateRole(ctx context.Context, principal users.Principal, id uuid.UUID, req UpdateRoleRequest) (*UserResponse, error) {
	if principal.Role != users.RoleAdmin {
		return nil, apperrors.Forbidden(nil, "only admins can change roles")
	}
	role, err := users.ParseRole(req.Role)
	if err != nil {
		return nil, apperrors.Validation(err, "invalid role")
	}
	if principal.UserID == id {
		return nil, apperrors.Conflict(nil, "you cannot change your own role")
	}

	var user *users.User
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.loadUser(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateRole(ctx, id, role); err != nil {
			return apperrors.Internal(err, "failed to update role")
		}
		// assignments only mean something for employees
		if user.Role == users.RoleEmployee && role != users.RoleEmployee {
			if err := s.repo.DeactivateAssignments(ctx, id); err != nil {
				return apperrors.Internal(err, "failed to release garage assignments")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	oldRole := user.Role
	user.Role = role
	s.record(ctx, principal, "User role updated", id, map[string]interface{}{
		"old_role": oldRole.String(),
		"new_role": role.String(),
	})

	resp := newUserResponse(user)
	return &resp, nil
}

func (s *service) DeleteUser(ctx context.Context, principal users.Principal, id uuid.UUID) error {
	if principal.Role != users.RoleAdmin {
		return apperrors.Forbidden(nil, "only admins can delete users")
	}
	if principal.UserID == id {
		return apperrors.Conflict(nil, "you cannot delete your own account")
	}

	var user *users.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.loadUser(ctx, id)
		if err != nil {
			return err
		}
		busy, err := s.repo.HasLedgerHistory(ctx, id)
		if err != nil {
			return apperrors.Internal(err, "failed to check user history")
		}
		if busy {
			return apperrors.Conflict(ErrUserHasLedgerItems, "user has wallets or bookings; deactivate the account instead")
		}
		if err := s.repo.DeleteUser(ctx, id); err != nil {
			return apperrors.Internal(err, "failed to delete user")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.record(ctx, principal, "User deleted", id, map[string]interface{}{
		"email": user.Email,
		"role":  user.Role.String(),
	})
	return nil
}

func (s *service) ListGarageEmployees(ctx context.Context, principal users.Principal, garageID uuid.UUID) (*EmployeeListResponse, error) {
	if _, err := s.managedGarage(ctx, principal, garageID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListAssignments(ctx, garageID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list employees")
	}
	return &EmployeeListResponse{GarageID: garageID.String(), Employees: list, Count: len(list)}, nil
}

func (s *service) IsAssigned(ctx context.Context, userID, garageID uuid.UUID) (bool, error) {
	return s.repo.IsAssigned(ctx, userID, garageID)
}

// managedGarage loads the garage and checks a garage_admin owns it; admins pass
func (s *service) managedGarage(ctx context.Context, principal users.Principal, garageID uuid.UUID) (*garages.Garage, error) {
	if principal.Role != users.RoleGarageAdmin && principal.Role != users.RoleAdmin {
		return nil, apperrors.Forbidden(nil, "only garage admins manage staff")
	}
	garage, err := s.garages.GetGarageByID(ctx, garageID)
	if err != nil {
		if errors.Is(err, garages.ErrGarageNotFound) {
			return nil, apperrors.NotFound(err, "garage not found")
		}
		return nil, apperrors.Internal(err, "failed to load garage")
	}
	if principal.Role == users.RoleGarageAdmin && !garage.IsManagedBy(principal.UserID) {
		return nil, apperrors.Forbidden(nil, "you can only manage staff of your own garages")
	}
	return garage, nil
}

func (s *service) newUser(firstName, lastName, email, phone, password string, role users.Role) (*users.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to create account")
	}
	return &users.User{
		FirstName: firstName,
		LastName:  lastName,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Phone:     phone,
		Password:  string(hashed),
		Role:      role,
		IsActive:  true,
	}, nil
}

func (s *service) createUser(ctx context.Context, user *users.User) error {
	exists, err := s.repo.EmailExists(ctx, user.Email)
	if err != nil {
		return apperrors.Internal(err, "failed to create account")
	}
	if exists {
		return apperrors.Conflict(ErrUserAlreadyExists, "User with this email already exists")
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			return apperrors.Conflict(err, "User with this email already exists")
		}
		return apperrors.Internal(err, "failed to create account")
	}
	return nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*users.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperrors.NotFound(err, "user not found")
		}
		return nil, apperrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// side effects never fail the operation

func (s *service) welcome(ctx context.Context, user *users.User, message string) {
	if s.notifier == nil {
		return
	}
	notification := notifications.NewNotificationBuilder().
		WithRecipient(user.ID).
		WithType(notifications.NotificationTypeInApp).
		WithContent(fmt.Sprintf("Welcome to Parkly, %s!", user.FirstName), message).
		Build()
	if err := s.notifier.Notify(context.WithoutCancel(ctx), notification); err != nil {
		s.log.LogSideEffectFailure(ctx, "notification", user.ID.String(), err)
	}
}

func (s *service) record(ctx context.Context, principal users.Principal, action string, userID uuid.UUID, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(context.WithoutCancel(ctx), audit.Entry{
		UserID:     principal.UserID,
		Action:     action,
		EntityType: audit.EntityUser,
		EntityID:   userID,
		Details:    details,
	})
	if err != nil {
		s.log.LogSideEffectFailure(ctx, "audit", userID.String(), err)
	}
}
