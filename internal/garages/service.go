package garages

import (
	"context"
	"errors"

	"parkly/internal/audit"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/constants"
	"parkly/internal/users"
	"parkly/pkg/cache"
	"parkly/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Service interface {
	CreateGarage(ctx context.Context, principal users.Principal, req CreateGarageRequest) (*Garage, error)
	GetGarage(ctx context.Context, id uuid.UUID) (*Garage, error)
	ListGarages(ctx context.Context, query GarageListQuery) (*GarageListResponse, error)
	UpdateGarage(ctx context.Context, principal users.Principal, id uuid.UUID, req UpdateGarageRequest) (*Garage, error)
	DeleteGarage(ctx context.Context, principal users.Principal, id uuid.UUID) error

	CreateSpot(ctx context.Context, principal users.Principal, garageID uuid.UUID, req CreateSpotRequest) (*ParkingSpot, error)
	ListSpots(ctx context.Context, garageID uuid.UUID, query SpotListQuery) (*SpotListResponse, error)
	DeleteSpot(ctx context.Context, principal users.Principal, garageID, spotID uuid.UUID) error
}

type service struct {
	repo  Repository
	cache cache.Service
	audit audit.Recorder
	log   *logger.Logger
}

// NewService wires the garage service; cacheService may be nil to disable caching
func NewService(repo Repository, cacheService cache.Service, recorder audit.Recorder, log *logger.Logger) Service {
	return &service{
		repo:  repo,
		cache: cacheService,
		audit: recorder,
		log:   log,
	}
}

func (s *service) CreateGarage(ctx context.Context, principal users.Principal, req CreateGarageRequest) (*Garage, error) {
	if principal.Role != users.RoleGarageAdmin && principal.Role != users.RoleAdmin {
		return nil, apperrors.Forbidden(nil, "only garage admins can create garages")
	}

	garage := &Garage{
		ManagerID:          principal.UserID,
		Name:               req.Name,
		Address:            req.Address,
		Governorate:        req.Governorate,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		TotalCapacity:      req.TotalCapacity,
		HourlyRate:         req.HourlyRate.Round(2),
		FloorsNumber:       req.FloorsNumber,
		WorkingHours:       req.WorkingHours,
		CancellationPolicy: req.CancellationPolicy,
		MinBookingHours:    req.MinBookingHours,
		CancellationFee:    req.CancellationFee.Round(2),
		IsActive:           true,
	}

	if err := s.repo.CreateGarage(ctx, garage); err != nil {
		return nil, apperrors.Internal(err, "failed to create garage")
	}

	s.invalidateLists(ctx)
	s.record(ctx, principal, "Garage created", audit.EntityGarage, garage.ID, map[string]interface{}{
		"name": garage.Name,
	})
	return garage, nil
}

func (s *service) GetGarage(ctx context.Context, id uuid.UUID) (*Garage, error) {
	fetch := func() (interface{}, error) {
		return s.repo.GetGarageByID(ctx, id)
	}

	var garage Garage
	var err error
	if s.cache != nil {
		err = s.cache.GetOrSet(ctx, constants.GarageDetailKey(id.String()), constants.TTL_GARAGE_DETAIL, fetch, &garage)
	} else {
		var g *Garage
		g, err = s.repo.GetGarageByID(ctx, id)
		if g != nil {
			garage = *g
		}
	}
	if err != nil {
		if errors.Is(err, ErrGarageNotFound) {
			return nil, apperrors.NotFound(err, "garage not found")
		}
		return nil, apperrors.Internal(err, "failed to load garage")
	}
	return &garage, nil
}

func (s *service) ListGarages(ctx context.Context, query GarageListQuery) (*GarageListResponse, error) {
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 20
	}

	fetch := func() (interface{}, error) {
		garages, total, err := s.repo.ListGarages(ctx, query)
		if err != nil {
			return nil, err
		}
		return &GarageListResponse{
			Garages:    garages,
			Page:       query.Page,
			Limit:      query.Limit,
			TotalCount: total,
			TotalPages: totalPages(total, query.Limit),
		}, nil
	}

	// Only the unfiltered listing is cached
	if s.cache != nil && query.Governorate == "" && query.ManagerID == "" {
		var result GarageListResponse
		if err := s.cache.GetOrSet(ctx, constants.GarageListKey(query.Page, query.Limit), constants.TTL_GARAGE_LIST, fetch, &result); err != nil {
			return nil, apperrors.Internal(err, "failed to list garages")
		}
		return &result, nil
	}

	result, err := fetch()
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list garages")
	}
	return result.(*GarageListResponse), nil
}

func (s *service) UpdateGarage(ctx context.Context, principal users.Principal, id uuid.UUID, req UpdateGarageRequest) (*Garage, error) {
	garage, err := s.loadManaged(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(garage, req)

	if err := s.repo.UpdateGarage(ctx, garage); err != nil {
		if errors.Is(err, ErrGarageNotFound) {
			return nil, apperrors.NotFound(err, "garage not found")
		}
		return nil, apperrors.Internal(err, "failed to update garage")
	}

	s.invalidate(ctx, id)
	s.record(ctx, principal, "Garage updated", audit.EntityGarage, id, nil)
	return garage, nil
}

func (s *service) DeleteGarage(ctx context.Context, principal users.Principal, id uuid.UUID) error {
	if _, err := s.loadManaged(ctx, principal, id); err != nil {
		return err
	}

	if err := s.repo.DeactivateGarage(ctx, id); err != nil {
		if errors.Is(err, ErrGarageNotFound) {
			return apperrors.NotFound(err, "garage not found")
		}
		return apperrors.Internal(err, "failed to delete garage")
	}

	s.invalidate(ctx, id)
	s.record(ctx, principal, "Garage deleted", audit.EntityGarage, id, nil)
	return nil
}

func (s *service) CreateSpot(ctx context.Context, principal users.Principal, garageID uuid.UUID, req CreateSpotRequest) (*ParkingSpot, error) {
	garage, err := s.loadManaged(ctx, principal, garageID)
	if err != nil {
		return nil, err
	}

	if req.FloorNumber >= garage.FloorsNumber {
		return nil, apperrors.Validation(nil, "floor %d does not exist in a garage with %d floors", req.FloorNumber, garage.FloorsNumber)
	}

	count, err := s.repo.CountActiveSpots(ctx, garageID)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to count parking spots")
	}
	if count >= int64(garage.TotalCapacity) {
		return nil, apperrors.Conflict(nil, "garage is at its capacity of %d spots", garage.TotalCapacity)
	}

	spotType := SpotType(req.SpotType)
	if spotType == "" {
		spotType = SpotTypeRegular
	}
	modifier := req.PriceModifier
	if modifier.IsZero() {
		modifier = decimal.NewFromInt(1)
	}

	spot := &ParkingSpot{
		GarageID:      garageID,
		FloorNumber:   req.FloorNumber,
		SpotNumber:    req.SpotNumber,
		SpotType:      spotType,
		PriceModifier: modifier,
		Status:        SpotStatusAvailable,
		IsActive:      true,
	}
	if err := s.repo.CreateSpot(ctx, spot); err != nil {
		return nil, apperrors.Internal(err, "failed to create parking spot")
	}

	s.record(ctx, principal, "Parking spot created", audit.EntitySpot, spot.ID, map[string]interface{}{
		"garage_id":   garageID.String(),
		"spot_number": spot.SpotNumber,
	})
	return spot, nil
}

func (s *service) ListSpots(ctx context.Context, garageID uuid.UUID, query SpotListQuery) (*SpotListResponse, error) {
	if _, err := s.GetGarage(ctx, garageID); err != nil {
		return nil, err
	}

	spots, err := s.repo.ListSpots(ctx, garageID, SpotStatus(query.Status))
	if err != nil {
		return nil, apperrors.Internal(err, "failed to list parking spots")
	}

	available := 0
	for i := range spots {
		if spots[i].IsAvailable() {
			available++
		}
	}

	return &SpotListResponse{
		GarageID:       garageID.String(),
		Spots:          spots,
		TotalSpots:     len(spots),
		AvailableSpots: available,
	}, nil
}

func (s *service) DeleteSpot(ctx context.Context, principal users.Principal, garageID, spotID uuid.UUID) error {
	if _, err := s.loadManaged(ctx, principal, garageID); err != nil {
		return err
	}

	if err := s.repo.DeactivateSpot(ctx, garageID, spotID); err != nil {
		switch {
		case errors.Is(err, ErrSpotNotFound):
			return apperrors.NotFound(err, "parking spot not found")
		case errors.Is(err, ErrSpotOccupied):
			return apperrors.Conflict(err, "parking spot is occupied and cannot be removed")
		default:
			return apperrors.Internal(err, "failed to delete parking spot")
		}
	}

	s.record(ctx, principal, "Parking spot deleted", audit.EntitySpot, spotID, map[string]interface{}{
		"garage_id": garageID.String(),
	})
	return nil
}

// loadManaged reads the garage uncached and checks the caller may change it
func (s *service) loadManaged(ctx context.Context, principal users.Principal, id uuid.UUID) (*Garage, error) {
	garage, err := s.repo.GetGarageByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrGarageNotFound) {
			return nil, apperrors.NotFound(err, "garage not found")
		}
		return nil, apperrors.Internal(err, "failed to load garage")
	}

	if principal.Role == users.RoleAdmin {
		return garage, nil
	}
	if principal.Role == users.RoleGarageAdmin && garage.IsManagedBy(principal.UserID) {
		return garage, nil
	}
	return nil, apperrors.Forbidden(nil, "you do not manage this garage")
}

func applyUpdate(garage *Garage, req UpdateGarageRequest) {
	if req.Name != nil {
		garage.Name = *req.Name
	}
	if req.Address != nil {
		garage.Address = *req.Address
	}
	if req.Governorate != nil {
		garage.Governorate = *req.Governorate
	}
	if req.Latitude != nil {
		garage.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		garage.Longitude = *req.Longitude
	}
	if req.TotalCapacity != nil {
		garage.TotalCapacity = *req.TotalCapacity
	}
	if req.HourlyRate != nil {
		garage.HourlyRate = req.HourlyRate.Round(2)
	}
	if req.FloorsNumber != nil {
		garage.FloorsNumber = *req.FloorsNumber
	}
	if req.WorkingHours != nil {
		garage.WorkingHours = req.WorkingHours
	}
	if req.CancellationPolicy != nil {
		garage.CancellationPolicy = *req.CancellationPolicy
	}
	if req.MinBookingHours != nil {
		garage.MinBookingHours = *req.MinBookingHours
	}
	if req.CancellationFee != nil {
		garage.CancellationFee = req.CancellationFee.Round(2)
	}
}

func (s *service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, constants.GarageDetailKey(id.String())); err != nil {
		s.log.Warn("Failed to invalidate garage cache", "garage_id", id.String(), "error", err)
	}
	s.invalidateLists(ctx)
}

func (s *service) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, constants.GarageListPattern()); err != nil {
		s.log.Warn("Failed to invalidate garage list cache", "error", err)
	}
}

func (s *service) record(ctx context.Context, principal users.Principal, action string, entity audit.EntityType, id uuid.UUID, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	details["performed_by"] = principal.UserID.String()

	err := s.audit.Record(ctx, audit.Entry{
		UserID:     principal.UserID,
		Action:     action,
		EntityType: entity,
		EntityID:   id,
		Details:    details,
	})
	if err != nil {
		s.log.LogSideEffectFailure(ctx, "audit", id.String(), err)
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
