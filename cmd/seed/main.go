package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"parkly/internal/garages"
	"parkly/internal/migrations"
	"parkly/internal/shared/config"
	"parkly/internal/shared/database"
	"parkly/internal/staff"
	"parkly/internal/users"
	"parkly/internal/wallets"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Parkly Database Seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := migrations.Migrate(db.PostgreSQL); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	seeder := &Seeder{db: db}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables, dependents first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"audit_logs",
		"notifications",
		"bookings",
		"transactions",
		"wallets",
		"garage_employees",
		"parking_spots",
		"garages",
		"users",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	userIDs, err := s.SeedUsers()
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	garageIDs, err := s.SeedGarages(userIDs["garage_admin"])
	if err != nil {
		return fmt.Errorf("failed to seed garages: %w", err)
	}

	if err := s.SeedEmployees(userIDs["employee"], garageIDs[0]); err != nil {
		return fmt.Errorf("failed to seed employees: %w", err)
	}

	if err := s.SeedWallets(userIDs["customer1"], garageIDs); err != nil {
		return fmt.Errorf("failed to seed wallets: %w", err)
	}

	// Clear Redis cache to ensure fresh state
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedUsers creates one account per staff role plus two customers
func (s *Seeder) SeedUsers() (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	userIDs := make(map[string]uuid.UUID)

	// Hash password for all users (using "qwerty")
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("qwerty"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	usersData := []struct {
		key       string
		firstName string
		lastName  string
		email     string
		role      users.Role
	}{
		{"admin", "Admin", "User", "admin@parkly.test", users.RoleAdmin},
		{"garage_admin", "Karim", "Hassan", "manager@parkly.test", users.RoleGarageAdmin},
		{"employee", "Omar", "Said", "attendant@parkly.test", users.RoleEmployee},
		{"customer1", "Mona", "Adel", "mona@parkly.test", users.RoleCustomer},
		{"customer2", "Youssef", "Nabil", "youssef@parkly.test", users.RoleCustomer},
	}

	for _, userData := range usersData {
		user := users.User{
			ID:        uuid.New(),
			FirstName: userData.firstName,
			LastName:  userData.lastName,
			Email:     userData.email,
			Password:  string(hashedPassword),
			Role:      userData.role,
			IsActive:  true,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userData.email, err)
		}

		userIDs[userData.key] = user.ID
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.Role)
	}

	return userIDs, nil
}

// SeedEmployees assigns the seeded attendant to the first garage
func (s *Seeder) SeedEmployees(employeeID, garageID uuid.UUID) error {
	fmt.Println("  🧑‍🔧 Seeding garage employees...")

	assignment := staff.GarageEmployee{
		ID:        uuid.New(),
		UserID:    employeeID,
		GarageID:  garageID,
		Role:      staff.EmployeeSupervisor,
		StartDate: time.Now(),
		IsActive:  true,
	}
	if err := s.db.PostgreSQL.Create(&assignment).Error; err != nil {
		return fmt.Errorf("failed to assign employee: %w", err)
	}

	fmt.Printf("    ✅ Assigned employee %s to garage %s (%s)\n", employeeID, garageID, assignment.Role)
	return nil
}

// SeedGarages creates two garages with a few floors of spots each
func (s *Seeder) SeedGarages(managerID uuid.UUID) ([]uuid.UUID, error) {
	fmt.Println("  🅿️ Seeding garages...")

	hours := datatypes.JSON([]byte(`{"sat-thu":"07:00-23:00","fri":"12:00-23:00"}`))

	garagesData := []struct {
		name        string
		address     string
		governorate string
		rate        string
		floors      int
		perFloor    int
		cancelFee   string
	}{
		{"Downtown Tahrir Garage", "12 Tahrir Square", "Cairo", "10.00", 2, 6, "5.00"},
		{"Smouha Club Parking", "Smouha, Victor Emanuel St", "Alexandria", "7.50", 1, 8, "0.00"},
	}

	var garageIDs []uuid.UUID
	for _, data := range garagesData {
		garage := garages.Garage{
			ID:                 uuid.New(),
			ManagerID:          managerID,
			Name:               data.name,
			Address:            data.address,
			Governorate:        data.governorate,
			TotalCapacity:      data.floors * data.perFloor,
			HourlyRate:         decimal.RequireFromString(data.rate),
			FloorsNumber:       data.floors,
			WorkingHours:       hours,
			CancellationPolicy: "Free cancellation within 15 minutes of booking.",
			MinBookingHours:    decimal.NewFromInt(1),
			CancellationFee:    decimal.RequireFromString(data.cancelFee),
			IsActive:           true,
			CreatedAt:          time.Now(),
			UpdatedAt:          time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&garage).Error; err != nil {
			return nil, fmt.Errorf("failed to create garage %s: %w", garage.Name, err)
		}
		fmt.Printf("    ✅ Created garage: %s\n", garage.Name)

		if err := s.createSpots(garage.ID, data.floors, data.perFloor); err != nil {
			return nil, fmt.Errorf("failed to create spots for %s: %w", garage.Name, err)
		}
		garageIDs = append(garageIDs, garage.ID)
	}

	return garageIDs, nil
}

// createSpots lays out spots F<floor>-<n>; the last spot on each floor is electric
func (s *Seeder) createSpots(garageID uuid.UUID, floors, perFloor int) error {
	var spots []garages.ParkingSpot
	for floor := 1; floor <= floors; floor++ {
		for n := 1; n <= perFloor; n++ {
			spotType := garages.SpotTypeRegular
			modifier := decimal.NewFromInt(1)
			switch {
			case n == perFloor:
				spotType = garages.SpotTypeElectric
				modifier = decimal.RequireFromString("1.50")
			case n == 1:
				spotType = garages.SpotTypeAccessible
			}

			spots = append(spots, garages.ParkingSpot{
				ID:            uuid.New(),
				GarageID:      garageID,
				FloorNumber:   floor,
				SpotNumber:    fmt.Sprintf("F%d-%02d", floor, n),
				SpotType:      spotType,
				PriceModifier: modifier,
				Status:        garages.SpotStatusAvailable,
				IsActive:      true,
				CreatedAt:     time.Now(),
				UpdatedAt:     time.Now(),
			})
		}
	}

	if err := s.db.PostgreSQL.CreateInBatches(spots, 50).Error; err != nil {
		return err
	}
	fmt.Printf("      ✅ Created %d spots\n", len(spots))
	return nil
}

// SeedWallets funds the first customer's wallet at every garage through a top_up,
// so the cached balance matches the ledger from the start
func (s *Seeder) SeedWallets(customerID uuid.UUID, garageIDs []uuid.UUID) error {
	fmt.Println("  💳 Seeding wallets...")

	amount := decimal.NewFromInt(200)
	for _, garageID := range garageIDs {
		err := s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
			wallet := wallets.Wallet{
				ID:        uuid.New(),
				UserID:    customerID,
				GarageID:  garageID,
				Balance:   amount,
				Currency:  "EGP",
				IsActive:  true,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := tx.Create(&wallet).Error; err != nil {
				return err
			}

			topUp := wallets.Transaction{
				ID:            uuid.New(),
				WalletID:      wallet.ID,
				Type:          wallets.TransactionTopUp,
				Amount:        amount,
				Status:        wallets.TransactionCompleted,
				PaymentMethod: wallets.PaymentCreditCard,
				Description:   "Initial top-up",
				CreatedAt:     time.Now(),
			}
			return tx.Create(&topUp).Error
		})
		if err != nil {
			return fmt.Errorf("failed to create wallet for garage %s: %w", garageID, err)
		}
	}

	fmt.Printf("    ✅ Funded %d wallets with %s EGP\n", len(garageIDs), amount.StringFixed(2))
	return nil
}
